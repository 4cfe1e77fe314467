package ws2md

import (
	"fmt"
	"io"
	"log/slog"
)

// Options control how raw files are turned into document content
type Options struct {
	Header  HeaderMode
	Charset Charset
}

var DefaultOptions = Options{
	Header:  HeaderAuto,
	Charset: CharsetUTF8,
}

// Parser reads WordStar files into classified documents. It holds no
// per-document state and can be shared between goroutines.
type Parser struct {
	opts Options
}

func NewParser(opts Options) *Parser {
	return &Parser{
		opts: opts,
	}
}

// ParseWordStarDoc reads a whole WordStar file, strips its header and
// classifies every line.
//
// Classification failures are returned as *MalformedInputError, with offsets
// relative to the start of the file.
func (p *Parser) ParseWordStarDoc(r io.Reader, md MetaData) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return p.ParseBytes(raw, md)
}

func (p *Parser) ParseBytes(raw []byte, md MetaData) (*Document, error) {
	content, skipped, err := SkipHeader(raw, p.opts.Header)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsing wordstar document",
		"source", md.Source,
		"bytes", len(raw),
		"header_skipped", skipped,
		"charset", p.opts.Charset)

	events, err := Classify(content, ClassifyOptions{
		Charset:    p.opts.Charset,
		BaseOffset: skipped,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("classified wordstar document", "source", md.Source, "events", len(events))

	return &Document{
		Metadata: md,
		Events:   events,
	}, nil
}
