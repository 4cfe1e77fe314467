package ws2md

import "strings"

// Document represents a classified WordStar document: an ordered list of line
// events, always terminated by an EventEOF, and metadata about the source file
type Document struct {
	// Metadata about the source file
	Metadata MetaData `json:"metadata" yaml:"metadata"`
	// The classified line events, in input order
	Events []Event `json:"events" yaml:"events"`
}

type MetaData struct {
	// The source file path, as given by the caller
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// The absolute source file path
	AbsSource string `json:"abs_source,omitempty" yaml:"abs_source,omitempty"`
}

// Headings returns the heading events of the document in order
func (d *Document) Headings() []Event {
	var out []Event
	for _, ev := range d.Events {
		if ev.Kind == EventHeading {
			out = append(out, ev)
		}
	}
	return out
}

type EventKind int

const (
	EventText EventKind = iota
	EventComment
	EventHeading
	EventDotCommand
	EventPageBreakChar
	EventEOF
)

var eventKindNames = map[EventKind]string{
	EventText:          "text",
	EventComment:       "comment",
	EventHeading:       "heading",
	EventDotCommand:    "dot_command",
	EventPageBreakChar: "page_break_char",
	EventEOF:           "eof",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets event dumps carry readable kind names
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a single classified line of a document.
//
// Only the fields relevant to Kind are populated:
//
//	EventComment      Text
//	EventHeading      Level, Text
//	EventDotCommand   Command
//	EventText         Runs
type Event struct {
	Kind    EventKind   `json:"kind" yaml:"kind"`
	Text    string      `json:"text,omitempty" yaml:"text,omitempty"`
	Level   int         `json:"level,omitempty" yaml:"level,omitempty"`
	Command *DotCommand `json:"command,omitempty" yaml:"command,omitempty"`
	Runs    []Run       `json:"runs,omitempty" yaml:"runs,omitempty"`

	// Byte offset of the line start in the source file (header included)
	Offset int `json:"offset" yaml:"offset"`
	// 1-based line number of the line start, counted after the header
	Line int `json:"line" yaml:"line"`
}

// PlainText returns the displayed text carried by the event, without styling
func (e Event) PlainText() string {
	switch e.Kind {
	case EventComment, EventHeading:
		return e.Text
	case EventDotCommand:
		if e.Command != nil && e.Command.Kind == DotInsertFile {
			return e.Command.Path
		}
	case EventText:
		var sb strings.Builder
		for _, r := range e.Runs {
			sb.WriteString(r.Text)
		}
		return sb.String()
	}
	return ""
}

type DotKind int

const (
	// DotIgnored covers recognized commands that carry no forwarded payload
	DotIgnored DotKind = iota
	DotInsertFile
	DotLeftMargin
	DotPageBreak
)

var dotKindNames = map[DotKind]string{
	DotIgnored:    "ignored",
	DotInsertFile: "insert_file",
	DotLeftMargin: "left_margin",
	DotPageBreak:  "page_break",
}

func (k DotKind) String() string {
	if s, ok := dotKindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k DotKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type DotCommand struct {
	Kind DotKind `json:"kind" yaml:"kind"`
	// File to insert, for DotInsertFile
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Margin for DotLeftMargin; nil resets the margin
	Margin *int `json:"margin,omitempty" yaml:"margin,omitempty"`
}

// Style is the set of modifiers active for a run. Each modifier is an
// independent toggle, so a run may carry several at once.
type Style uint8

const (
	StylePlain Style = 0
	StyleBold  Style = 1 << iota
	StyleItalic
	StyleUnderline
)

func (s Style) Has(m Style) bool {
	return s&m != 0
}

// Toggle flips a single modifier
func (s Style) Toggle(m Style) Style {
	return s ^ m
}

func (s Style) String() string {
	if s == StylePlain {
		return "plain"
	}
	var parts []string
	if s.Has(StyleBold) {
		parts = append(parts, "bold")
	}
	if s.Has(StyleItalic) {
		parts = append(parts, "italic")
	}
	if s.Has(StyleUnderline) {
		parts = append(parts, "underline")
	}
	return strings.Join(parts, "+")
}

func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Run is a span of displayed text with the modifiers active while it was read
type Run struct {
	Text  string `json:"text" yaml:"text"`
	Style Style  `json:"style" yaml:"style"`
}
