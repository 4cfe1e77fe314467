package ws2md

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

type WriteMode int

const (
	ModeMarkdown WriteMode = iota
	ModeHTML
)

func (m WriteMode) String() string {
	switch m {
	case ModeMarkdown:
		return "markdown"
	case ModeHTML:
		return "html"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Ext is the output file extension for the mode
func (m WriteMode) Ext() string {
	if m == ModeHTML {
		return ".html"
	}
	return ".md"
}

func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(s) {
	case "markdown", "md", "":
		return ModeMarkdown, nil
	case "html":
		return ModeHTML, nil
	}
	return ModeMarkdown, fmt.Errorf("unknown output format %q (want markdown or html)", s)
}

type WriterOptions struct {
	// Render comment lines as HTML comments instead of dropping them
	KeepComments bool
}

type WriterMetadata struct {
	Version   string
	AbsSource string
	Generated string
}

const pageBreakRule = "\n----\n\n"

// Writer renders classified documents. Markdown is always produced first;
// ModeHTML passes it through goldmark.
type Writer struct {
	mode WriteMode
	opts WriterOptions
	gm   goldmark.Markdown
}

func NewWriter(mode WriteMode, opts WriterOptions) *Writer {
	return &Writer{
		mode: mode,
		opts: opts,
		gm: goldmark.New(
			// <u> and &nbsp; must survive rendering
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (w *Writer) Mode() WriteMode {
	return w.mode
}

// Write writes the generated-by header followed by the document content
func (w *Writer) Write(doc *Document, out io.Writer, version string, generated time.Time) error {
	source := doc.Metadata.AbsSource
	if source == "" {
		source = doc.Metadata.Source
	}
	md := WriterMetadata{
		Version:   version,
		AbsSource: source,
		Generated: generated.Format(time.RFC3339),
	}
	if err := w.WriteHeader(out, md); err != nil {
		return err
	}
	return w.WriteContent(doc, out)
}

// WriteHeader writes a comment block naming the tool, the source and the time
// of generation. The comment syntax is valid in both Markdown and HTML.
func (w *Writer) WriteHeader(out io.Writer, md WriterMetadata) error {
	_, err := fmt.Fprintf(out, "<!--\n  Generated by ws2md %s\n  Source: %s\n  Generated: %s\n-->\n\n",
		md.Version, commentSafe(md.AbsSource), md.Generated)
	if err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

func (w *Writer) WriteContent(doc *Document, out io.Writer) error {
	md := w.Markdown(doc)
	slog.Debug("rendered document", "source", doc.Metadata.Source, "mode", w.mode, "bytes", len(md))

	if w.mode == ModeHTML {
		if err := w.gm.Convert(md, out); err != nil {
			return fmt.Errorf("rendering html: %w", err)
		}
		return nil
	}

	if _, err := out.Write(md); err != nil {
		return fmt.Errorf("writing content: %w", err)
	}
	return nil
}

// Markdown renders the document as Markdown. Left margins are simulated with
// non-breaking spaces on text lines.
func (w *Writer) Markdown(doc *Document) []byte {
	var buf bytes.Buffer
	margin := 0

	for _, ev := range doc.Events {
		switch ev.Kind {
		case EventHeading:
			buf.WriteString(strings.Repeat("#", ev.Level))
			buf.WriteByte(' ')
			buf.WriteString(escapeMarkdown(ev.Text))
			buf.WriteByte('\n')
		case EventText:
			writeTextLine(&buf, ev.Runs, margin)
		case EventComment:
			if w.opts.KeepComments {
				fmt.Fprintf(&buf, "<!-- %s -->\n", commentSafe(ev.Text))
			}
		case EventPageBreakChar:
			buf.WriteString(pageBreakRule)
		case EventDotCommand:
			if ev.Command == nil {
				continue
			}
			switch ev.Command.Kind {
			case DotInsertFile:
				fmt.Fprintf(&buf, "\n[%s](%s)\n", escapeMarkdown(baseName(ev.Command.Path)), linkDestination(ev.Command.Path))
			case DotLeftMargin:
				margin = 0
				if ev.Command.Margin != nil {
					margin = *ev.Command.Margin
				}
			case DotPageBreak:
				buf.WriteString(pageBreakRule)
			}
		}
	}
	return buf.Bytes()
}

// writeTextLine renders one text line. Left margins are simulated with
// non-breaking spaces; empty lines stay empty.
func writeTextLine(buf *bytes.Buffer, runs []Run, margin int) {
	if len(runs) == 0 {
		buf.WriteByte('\n')
		return
	}

	var line bytes.Buffer
	for i, r := range runs {
		var next rune
		if i+1 < len(runs) {
			nr := runs[i+1]
			next, _ = utf8.DecodeRuneInString(nr.Text)
			// a styled neighbour starts with its own marker
			if nr.Style != StylePlain && !unicode.IsSpace(next) {
				next = '*'
			}
		}
		writeRun(&line, r, next)
	}

	buf.WriteString(strings.Repeat("&nbsp;", margin))
	buf.WriteString(escapeLineStart(line.String()))
	buf.WriteByte('\n')
}

// writeRun wraps the run in emphasis markers, keeping edge whitespace outside
// them so the markers still open and close. next is the first character
// written after the run, 0 at the end of the line.
//
// Markers next to punctuation only open or close when the other side is a
// boundary; where they would not, the run falls back to inline HTML tags.
func writeRun(buf *bytes.Buffer, r Run, next rune) {
	core := strings.TrimFunc(r.Text, unicode.IsSpace)
	if r.Style == StylePlain || core == "" {
		buf.WriteString(escapeMarkdown(r.Text))
		return
	}
	lead := r.Text[:strings.Index(r.Text, core)]
	trail := r.Text[len(lead)+len(core):]

	var before rune
	if buf.Len() > 0 {
		before, _ = utf8.DecodeLastRune(buf.Bytes())
	}
	if lead != "" {
		before = ' '
	}
	after := next
	if trail != "" {
		after = ' '
	}
	first, _ := utf8.DecodeRuneInString(core)
	last, _ := utf8.DecodeLastRuneInString(core)
	flanking := (!isPunctuation(first) || isBoundary(before)) &&
		(!isPunctuation(last) || isBoundary(after))

	bold := [2]string{"**", "**"}
	italic := [2]string{"*", "*"}
	if !flanking {
		bold = [2]string{"<strong>", "</strong>"}
		italic = [2]string{"<em>", "</em>"}
	}

	var opener, closer string
	if r.Style.Has(StyleUnderline) {
		opener, closer = "<u>", "</u>"
	}
	if r.Style.Has(StyleBold) {
		opener, closer = opener+bold[0], bold[1]+closer
	}
	if r.Style.Has(StyleItalic) {
		opener, closer = opener+italic[0], italic[1]+closer
	}

	buf.WriteString(lead)
	buf.WriteString(opener)
	buf.WriteString(escapeMarkdown(core))
	buf.WriteString(closer)
	buf.WriteString(trail)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func isPunctuation(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isBoundary(r rune) bool {
	return r == 0 || unicode.IsSpace(r) || isPunctuation(r)
}

// escapeLineStart keeps a rendered text line from opening a block: setext
// underlines, thematic breaks, list items, fences and indented code
func escapeLineStart(line string) string {
	rest := strings.TrimLeft(line, " ")
	if rest == "" {
		return line
	}
	indent := line[:len(line)-len(rest)]
	if len(indent) >= 4 {
		indent = strings.Repeat("&#32;", len(indent))
	}

	switch rest[0] {
	case '=', '-', '+', '~':
		return indent + `\` + rest
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(rest) && (rest[digits] == '.' || rest[digits] == ')') {
		return indent + rest[:digits] + `\` + rest[digits:]
	}
	return indent + rest
}

func commentSafe(s string) string {
	return strings.ReplaceAll(s, "--", "- -")
}

// baseName handles both DOS and Unix separators, since inserted file names
// come from DOS era documents
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\:`); i >= 0 && i < len(path)-1 {
		return path[i+1:]
	}
	return path
}

func linkDestination(path string) string {
	if strings.ContainsAny(path, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(path) + ">"
	}
	return path
}
