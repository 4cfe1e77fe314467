package ws2md

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
)

// Control codes with a meaning of their own. Everything else below 0x20 is
// discarded wherever it appears.
const (
	ctrlBold      = 0x02
	ctrlLineFeed  = 0x0A
	ctrlFormFeed  = 0x0C
	ctrlReturn    = 0x0D
	ctrlUnderline = 0x13
	ctrlItalic    = 0x19
	ctrlEOF       = 0x1A
)

var modifierStyles = map[rune]Style{
	ctrlBold:      StyleBold,
	ctrlItalic:    StyleItalic,
	ctrlUnderline: StyleUnderline,
}

// ignoredDotCommands are recognized but never forwarded. Whatever follows the
// token on the line is discarded with it.
var ignoredDotCommands = []string{".av", ".oc", ".hy", ".if", ".el", ".ei", ".oj", ".kr", ".lh"}

var headingLevels = map[string]int{
	".he": 1,
	".h1": 1,
	".h2": 2,
	".h3": 3,
	".h4": 4,
	".h5": 5,
}

func isControl(r rune) bool {
	return r < 0x20
}

func isIgnoredControl(r rune) bool {
	if !isControl(r) {
		return false
	}
	switch r {
	case ctrlLineFeed, ctrlReturn, ctrlFormFeed, ctrlEOF:
		return false
	}
	_, modifier := modifierStyles[r]
	return !modifier
}

// isDisplayed reports whether r is part of the printable payload of a line
func isDisplayed(r rune) bool {
	return unicode.In(r, unicode.L, unicode.N, unicode.P, unicode.S, unicode.Zs)
}

// ClassifyOptions control a single classification run
type ClassifyOptions struct {
	Charset Charset
	// BaseOffset is added to every reported offset, usually the size of the skipped header
	BaseOffset int
}

// Classify turns document content (header already removed) into its ordered
// line events. The last event is always EventEOF. The first byte that no line
// rule accepts aborts classification with a *MalformedInputError.
func Classify(content []byte, opts ClassifyOptions) ([]Event, error) {
	s := &scanner{
		src:     content,
		charset: opts.Charset,
		base:    opts.BaseOffset,
		line:    1,
	}
	return s.run()
}

type scanner struct {
	src     []byte
	pos     int
	charset Charset
	base    int

	line      int
	lineStart int
	// Modifier state carries over line boundaries until toggled again
	style  Style
	events []Event
}

func (s *scanner) run() ([]Event, error) {
	s.skipLeadingIgnored()

	for s.pos < len(s.src) {
		if s.src[s.pos] == ctrlEOF {
			if err := s.consumeEOF(); err != nil {
				return nil, err
			}
			break
		}
		if err := s.classifyLine(); err != nil {
			return nil, err
		}
	}

	s.emit(Event{Kind: EventEOF}, s.pos)
	return s.events, nil
}

// skipLeadingIgnored drops stray control codes left in front of the first
// line by lossy conversions
func (s *scanner) skipLeadingIgnored() {
	for s.pos < len(s.src) {
		r, size := s.charset.decode(s.src[s.pos:])
		if !isIgnoredControl(r) {
			break
		}
		s.pos += size
	}
	s.lineStart = s.pos
}

func (s *scanner) consumeEOF() error {
	for s.pos < len(s.src) && s.src[s.pos] == ctrlEOF {
		s.pos++
	}
	// CP/M era files are padded out to a full record after the marker
	for i := s.pos; i < len(s.src); i++ {
		if b := s.src[i]; b != ctrlEOF && b != 0x00 {
			return s.malformed(i, "end of file padding")
		}
	}
	return nil
}

// lineEnd returns the index of the terminator of the line starting at s.pos,
// or len(src) when the line runs to the end of input
func (s *scanner) lineEnd() int {
	for i := s.pos; i < len(s.src); i++ {
		switch s.src[i] {
		case ctrlLineFeed, ctrlReturn, ctrlEOF:
			return i
		}
	}
	return len(s.src)
}

// endLine consumes a newline sequence at s.pos, if there is one
func (s *scanner) endLine() {
	if s.pos >= len(s.src) {
		return
	}
	switch s.src[s.pos] {
	case ctrlReturn:
		s.pos++
		if s.pos < len(s.src) && s.src[s.pos] == ctrlLineFeed {
			s.pos++
		}
	case ctrlLineFeed:
		s.pos++
	default:
		return
	}
	s.line++
	s.lineStart = s.pos
}

func (s *scanner) emit(ev Event, start int) {
	ev.Offset = s.base + start
	ev.Line = s.line
	s.events = append(s.events, ev)
}

func (s *scanner) malformed(at int, rule string) error {
	return &MalformedInputError{
		Offset: s.base + at,
		Line:   s.line,
		Column: at - s.lineStart + 1,
		Rule:   rule,
		Byte:   s.src[at],
	}
}

func (s *scanner) classifyLine() error {
	start := s.pos
	end := s.lineEnd()
	line := s.src[start:end]

	if bytes.HasPrefix(line, []byte("..")) {
		s.emit(Event{Kind: EventComment, Text: s.commentText(line[2:])}, start)
		s.pos = end
		s.endLine()
		return nil
	}

	if len(line) > 0 && line[0] == '.' {
		if ev, ok := s.dotLine(line); ok {
			s.emit(ev, start)
			s.pos = end
			s.endLine()
			return nil
		}
	}

	if len(line) > 0 && line[0] == ctrlFormFeed {
		s.emit(Event{Kind: EventPageBreakChar}, start)
		return s.afterFormFeed(start+1, end)
	}

	return s.normalLine(start, end, false)
}

// afterFormFeed finishes the physical line behind a form feed. The remainder
// is never line-initial, so it is only ever read as text.
func (s *scanner) afterFormFeed(next, end int) error {
	if next >= end {
		s.pos = end
		s.endLine()
		return nil
	}
	return s.normalLine(next, end, true)
}

// dotLine matches headings, forwarded dot commands and ignored dot commands.
// A line that matches none of them is left for the normal line rule.
func (s *scanner) dotLine(line []byte) (Event, bool) {
	if len(line) < 3 {
		return Event{}, false
	}
	token := string(line[:3])
	rest := line[3:]

	if level, ok := headingLevels[token]; ok {
		if text, ok := s.headingText(rest); ok {
			return Event{Kind: EventHeading, Level: level, Text: text}, true
		}
		return Event{}, false
	}

	switch token {
	case ".fi":
		if path, ok := s.argumentText(rest); ok {
			return dotEvent(DotCommand{Kind: DotInsertFile, Path: path}), true
		}
		return Event{}, false
	case ".lm":
		arg := strings.TrimRight(string(rest), " ")
		if arg == "" {
			return dotEvent(DotCommand{Kind: DotLeftMargin}), true
		}
		if !strings.HasPrefix(arg, " ") {
			return Event{}, false
		}
		n, err := strconv.Atoi(strings.TrimLeft(arg, " "))
		if err != nil || n < 0 || strings.ContainsAny(arg, "+-") {
			return Event{}, false
		}
		return dotEvent(DotCommand{Kind: DotLeftMargin, Margin: &n}), true
	case ".pa":
		if len(bytes.Trim(rest, " ")) == 0 {
			return dotEvent(DotCommand{Kind: DotPageBreak}), true
		}
		return Event{}, false
	}

	if isIgnoredDotCommand(token) {
		return dotEvent(DotCommand{Kind: DotIgnored}), true
	}
	return Event{}, false
}

func isIgnoredDotCommand(token string) bool {
	for _, c := range ignoredDotCommands {
		if token == c {
			return true
		}
	}
	// footers: .fo and numbered .f1 .. .f9
	return token[1] == 'f' && (token[2] == 'o' || (token[2] >= '0' && token[2] <= '9'))
}

func dotEvent(c DotCommand) Event {
	return Event{Kind: EventDotCommand, Command: &c}
}

// commentText is everything after the leading spaces, minus control codes
func (s *scanner) commentText(p []byte) string {
	p = bytes.TrimLeft(p, " ")
	var sb strings.Builder
	for i := 0; i < len(p); {
		r, size := s.charset.decode(p[i:])
		i += size
		if isControl(r) || r == 0x7F {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// headingText requires one or more spaces followed by displayed text.
// Modifiers inside a heading are dropped.
func (s *scanner) headingText(p []byte) (string, bool) {
	if len(p) == 0 || p[0] != ' ' {
		return "", false
	}
	p = bytes.TrimLeft(p, " ")
	var sb strings.Builder
	for i := 0; i < len(p); {
		r, size := s.charset.decode(p[i:])
		i += size
		switch {
		case isControl(r):
			if r == ctrlFormFeed {
				return "", false
			}
		case isDisplayed(r):
			sb.WriteRune(r)
		default:
			return "", false
		}
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// argumentText requires one or more spaces followed by displayed text only
func (s *scanner) argumentText(p []byte) (string, bool) {
	if len(p) == 0 || p[0] != ' ' {
		return "", false
	}
	p = bytes.Trim(p, " ")
	var sb strings.Builder
	for i := 0; i < len(p); {
		r, size := s.charset.decode(p[i:])
		i += size
		if !isDisplayed(r) {
			return "", false
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// normalLine reads text runs from start to end. A continuation is the part of
// a line behind a form feed; it yields no event when it carries no text.
func (s *scanner) normalLine(start, end int, continuation bool) error {
	var runs []Run
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		// toggles that cancel out do not split a run
		if n := len(runs); n > 0 && runs[n-1].Style == s.style {
			runs[n-1].Text += buf.String()
		} else {
			runs = append(runs, Run{Text: buf.String(), Style: s.style})
		}
		buf.Reset()
	}

	for i := start; i < end; {
		r, size := s.charset.decode(s.src[i:end])
		if m, ok := modifierStyles[r]; ok {
			flush()
			s.style = s.style.Toggle(m)
			i += size
			continue
		}
		switch {
		case r == ctrlFormFeed:
			// a form feed inside a line closes the text and stands on its own
			flush()
			if !continuation || len(runs) > 0 {
				s.emit(Event{Kind: EventText, Runs: runs}, start)
			}
			s.emit(Event{Kind: EventPageBreakChar}, i)
			return s.afterFormFeed(i+size, end)
		case isIgnoredControl(r):
		case isDisplayed(r):
			buf.WriteRune(r)
		default:
			return s.malformed(i, "normal line")
		}
		i += size
	}

	flush()
	if !continuation || len(runs) > 0 {
		s.emit(Event{Kind: EventText, Runs: runs}, start)
	}
	s.pos = end
	s.endLine()
	return nil
}
