package lsp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/jwtly10/ws2md"
	"github.com/jwtly10/ws2md/internal/transformer"
	"github.com/sourcegraph/go-lsp"
)

const diagnosticSource = "ws2md"

type DocumentServiceOptions struct {
	// Decoding applied to open documents
	Parse ws2md.Options
	// Options for the convert command
	ConvertTransformerOpts transformer.TransformOptions
}

var DefaultDocumentServiceOptions = DocumentServiceOptions{
	Parse: ws2md.DefaultOptions,
	ConvertTransformerOpts: transformer.TransformOptions{
		Parse:      ws2md.DefaultOptions,
		WriterMode: ws2md.ModeMarkdown,
		NoBackup:   false,
	},
}

func (o DocumentServiceOptions) Validate() error {
	if o.ConvertTransformerOpts.Parse != o.Parse {
		return fmt.Errorf("convert options decode documents differently (%+v) from the editor view (%+v)",
			o.ConvertTransformerOpts.Parse, o.Parse)
	}
	return nil
}

// openDocument is the latest editor state of a document and its classification
type openDocument struct {
	text  string
	index *lineIndex
	// nil while the text is malformed
	doc *ws2md.Document
	err error
}

// DocumentService tracks open documents and answers editor queries about them
type DocumentService struct {
	mu   sync.RWMutex
	docs map[lsp.DocumentURI]*openDocument

	parser  *ws2md.Parser
	preview *ws2md.Writer

	// The transformer used for the convert command
	convertTransformer *transformer.Transformer
}

func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document service options: %w", err)
	}

	return &DocumentService{
		docs:               make(map[lsp.DocumentURI]*openDocument),
		parser:             ws2md.NewParser(opts.Parse),
		preview:            ws2md.NewWriter(ws2md.ModeMarkdown, ws2md.WriterOptions{KeepComments: true}),
		convertTransformer: transformer.NewTransformer(opts.ConvertTransformerOpts),
	}, nil
}

// Update classifies text as the current content of uri and returns the
// diagnostics to publish. An empty slice clears earlier diagnostics.
func (s *DocumentService) Update(uri lsp.DocumentURI, text string) []lsp.Diagnostic {
	od := &openDocument{
		text:  text,
		index: newLineIndex(text),
	}
	od.doc, od.err = s.parser.ParseBytes([]byte(text), ws2md.MetaData{Source: string(uri)})

	s.mu.Lock()
	s.docs[uri] = od
	s.mu.Unlock()

	slog.Debug("document updated", "uri", uri, "bytes", len(text), "error", od.err)
	return od.diagnostics()
}

// Close forgets uri
func (s *DocumentService) Close(uri lsp.DocumentURI) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

func (s *DocumentService) IsOpen(uri lsp.DocumentURI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[uri]
	return ok
}

func (s *DocumentService) get(uri lsp.DocumentURI) (*openDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	od, ok := s.docs[uri]
	if !ok {
		return nil, fmt.Errorf("document not open: %s", uri)
	}
	return od, nil
}

func (od *openDocument) diagnostics() []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	if od.err == nil {
		return diags
	}

	var malformed *ws2md.MalformedInputError
	if errors.As(od.err, &malformed) {
		start := od.index.position(malformed.Offset)
		end := od.index.position(malformed.Offset + 1)
		return append(diags, lsp.Diagnostic{
			Range:    lsp.Range{Start: start, End: end},
			Severity: lsp.Error,
			Source:   diagnosticSource,
			Message:  fmt.Sprintf("unexpected byte 0x%02X in %s", malformed.Byte, malformed.Rule),
		})
	}

	// Header problems have no position of their own
	return append(diags, lsp.Diagnostic{
		Range:    lsp.Range{Start: lsp.Position{}, End: od.index.lineEnd(0)},
		Severity: lsp.Error,
		Source:   diagnosticSource,
		Message:  od.err.Error(),
	})
}

// Symbols lists the headings of uri, each contained by the closest preceding
// heading of a higher level
func (s *DocumentService) Symbols(uri lsp.DocumentURI) ([]lsp.SymbolInformation, error) {
	od, err := s.get(uri)
	if err != nil {
		return nil, err
	}
	symbols := []lsp.SymbolInformation{}
	if od.doc == nil {
		return symbols, nil
	}

	// parents[level] is the latest heading seen at that level
	var parents [6]string
	for _, ev := range od.doc.Headings() {
		start := od.index.position(ev.Offset)
		sym := lsp.SymbolInformation{
			Name: ev.Text,
			Kind: lsp.SKNamespace,
			Location: lsp.Location{
				URI:   uri,
				Range: lsp.Range{Start: start, End: od.index.lineEnd(start.Line)},
			},
		}
		for level := ev.Level - 1; level >= 1; level-- {
			if parents[level] != "" {
				sym.ContainerName = parents[level]
				break
			}
		}
		parents[ev.Level] = ev.Text
		for level := ev.Level + 1; level < len(parents); level++ {
			parents[level] = ""
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// Hover renders the line under pos as it will appear after conversion
func (s *DocumentService) Hover(uri lsp.DocumentURI, pos lsp.Position) (*lsp.Hover, error) {
	od, err := s.get(uri)
	if err != nil {
		return nil, err
	}
	if od.doc == nil {
		return nil, nil
	}

	var hovered *ws2md.Event
	for i := range od.doc.Events {
		ev := &od.doc.Events[i]
		if ev.Kind == ws2md.EventEOF {
			break
		}
		line := od.index.position(ev.Offset).Line
		if line > pos.Line {
			break
		}
		if line == pos.Line {
			hovered = ev
		}
	}
	if hovered == nil {
		return nil, nil
	}

	start := od.index.position(hovered.Offset)
	return &lsp.Hover{
		Contents: []lsp.MarkedString{lsp.RawMarkedString(s.previewEvent(*hovered))},
		Range:    &lsp.Range{Start: start, End: od.index.lineEnd(start.Line)},
	}, nil
}

func (s *DocumentService) previewEvent(ev ws2md.Event) string {
	var sb strings.Builder
	switch ev.Kind {
	case ws2md.EventHeading:
		fmt.Fprintf(&sb, "**heading %d**\n\n", ev.Level)
	case ws2md.EventComment:
		sb.WriteString("**comment**\n\n")
	case ws2md.EventDotCommand:
		if ev.Command != nil {
			fmt.Fprintf(&sb, "**dot command** `%s`\n\n", ev.Command.Kind)
		}
	case ws2md.EventPageBreakChar:
		sb.WriteString("**page break**\n\n")
	}
	sb.Write(s.preview.Markdown(&ws2md.Document{Events: []ws2md.Event{ev}}))
	return strings.TrimRight(sb.String(), "\n")
}

// Convert writes the converted form of the open document next to its source
// file, returning the output path
func (s *DocumentService) Convert(uri lsp.DocumentURI) (string, error) {
	od, err := s.get(uri)
	if err != nil {
		return "", err
	}
	path, err := URIToPath(uri)
	if err != nil {
		return "", fmt.Errorf("invalid document URI: %w", err)
	}

	out, err := s.convertTransformer.Transform(transformer.WordStarSource{
		Content: strings.NewReader(od.text),
		Metadata: ws2md.MetaData{
			Source:    path,
			AbsSource: path,
		},
	})
	if err != nil {
		return "", fmt.Errorf("transform error: %w", err)
	}

	slog.Debug("converted document", "uri", uri, "output", out)
	return out, nil
}

// URIToPath converts an LSP URI to a filesystem path
func URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// PathToURI converts a filesystem path to an LSP URI
func PathToURI(path string) lsp.DocumentURI {
	return lsp.DocumentURI((&url.URL{Scheme: "file", Path: path}).String())
}
