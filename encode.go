package ws2md

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Encode writes the shortest WordStar content (no header, UTF-8 text) that
// classifies back into the same events. Ignored dot commands are written as
// ".oj" since their original text is not kept.
func Encode(w io.Writer, events []Event) error {
	e := &encoder{w: bufio.NewWriter(w)}
	for _, ev := range events {
		if ev.Kind == EventEOF {
			e.w.WriteByte(ctrlEOF)
			break
		}
		if err := e.event(ev); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

type encoder struct {
	w     *bufio.Writer
	style Style
}

func (e *encoder) event(ev Event) error {
	switch ev.Kind {
	case EventComment:
		e.line(".." + ev.Text)
	case EventHeading:
		if ev.Level < 1 || ev.Level > 5 {
			return fmt.Errorf("heading level %d out of range", ev.Level)
		}
		e.line(".h" + strconv.Itoa(ev.Level) + " " + ev.Text)
	case EventDotCommand:
		if ev.Command == nil {
			return fmt.Errorf("dot command event at line %d has no command", ev.Line)
		}
		e.line(encodeDotCommand(*ev.Command))
	case EventPageBreakChar:
		e.w.WriteByte(ctrlFormFeed)
		e.w.WriteByte('\n')
	case EventText:
		e.text(ev.Runs)
	default:
		return fmt.Errorf("cannot encode event kind %s", ev.Kind)
	}
	return nil
}

func encodeDotCommand(c DotCommand) string {
	switch c.Kind {
	case DotInsertFile:
		return ".fi " + c.Path
	case DotLeftMargin:
		if c.Margin == nil {
			return ".lm"
		}
		return ".lm " + strconv.Itoa(*c.Margin)
	case DotPageBreak:
		return ".pa"
	default:
		return ".oj"
	}
}

func (e *encoder) line(s string) {
	e.w.WriteString(s)
	e.w.WriteByte('\n')
}

func (e *encoder) text(runs []Run) {
	if len(runs) > 0 && len(runs[0].Text) > 0 && runs[0].Text[0] == '.' && runs[0].Style == e.style {
		// a paired toggle keeps the line from being read as a dot command
		e.w.WriteByte(ctrlBold)
		e.w.WriteByte(ctrlBold)
	}
	for _, r := range runs {
		e.toggleTo(r.Style)
		e.w.WriteString(r.Text)
	}
	e.w.WriteByte('\n')
}

func (e *encoder) toggleTo(target Style) {
	for _, m := range []struct {
		style Style
		code  byte
	}{
		{StyleBold, ctrlBold},
		{StyleItalic, ctrlItalic},
		{StyleUnderline, ctrlUnderline},
	} {
		if e.style.Has(m.style) != target.Has(m.style) {
			e.w.WriteByte(m.code)
			e.style = e.style.Toggle(m.style)
		}
	}
}
