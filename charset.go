package ws2md

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Charset selects how bytes above 0x7F are turned into displayed characters
type Charset int

const (
	// CharsetUTF8 decodes UTF-8 and replaces invalid bytes with U+FFFD
	CharsetUTF8 Charset = iota
	// CharsetCP437 decodes single bytes with the IBM PC code page
	CharsetCP437
	// CharsetSevenBit clears bit 7, which WordStar 3 and 4 set on word-final characters.
	// Control codes with bit 7 set decode to NUL.
	CharsetSevenBit
)

var charsetNames = map[Charset]string{
	CharsetUTF8:     "utf8",
	CharsetCP437:    "cp437",
	CharsetSevenBit: "7bit",
}

func (c Charset) String() string {
	if s, ok := charsetNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Charset(%d)", int(c))
}

func ParseCharset(s string) (Charset, error) {
	for c, name := range charsetNames {
		if name == s {
			return c, nil
		}
	}
	return CharsetUTF8, fmt.Errorf("unknown charset %q (want utf8, cp437 or 7bit)", s)
}

// decode returns the character at the start of p and the number of bytes it spans
func (c Charset) decode(p []byte) (rune, int) {
	b := p[0]
	if b < utf8.RuneSelf {
		return rune(b), 1
	}
	switch c {
	case CharsetCP437:
		return charmap.CodePage437.DecodeByte(b), 1
	case CharsetSevenBit:
		// soft returns and soft hyphens carry bit 7 too; they are dropped as NUL
		if r := rune(b & 0x7F); r >= 0x20 && r != 0x7F {
			return r, 1
		}
		return 0, 1
	default:
		return utf8.DecodeRune(p)
	}
}
