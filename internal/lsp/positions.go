package lsp

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sourcegraph/go-lsp"
)

// lineIndex maps byte offsets of an open document onto LSP positions
type lineIndex struct {
	text string
	// Byte offset of the start of every line. A line ends at \n, \r\n or a lone \r.
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

// position converts a byte offset. Characters are counted in UTF-16 code units.
func (l *lineIndex) position(offset int) lsp.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(l.text) {
		offset = len(l.text)
	}
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1

	char := 0
	for i := l.starts[line]; i < offset; {
		r, size := utf8.DecodeRuneInString(l.text[i:])
		if n := utf16.RuneLen(r); n > 0 {
			char += n
		} else {
			char++
		}
		i += size
	}
	return lsp.Position{Line: line, Character: char}
}

// lineEnd returns the position just before the terminator of line
func (l *lineIndex) lineEnd(line int) lsp.Position {
	if line+1 >= len(l.starts) {
		return l.position(len(l.text))
	}
	end := l.starts[line+1] - 1
	if end > 0 && l.text[end] == '\n' && l.text[end-1] == '\r' {
		end--
	}
	return l.position(end)
}
