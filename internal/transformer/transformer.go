package transformer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jwtly10/ws2md"
)

type TransformOptions struct {
	// How raw files are decoded
	Parse ws2md.Options
	// The mode for the writer instance
	WriterMode ws2md.WriteMode
	// Options passed to the writer
	Writer ws2md.WriterOptions
	// If true, no backup will be created
	NoBackup bool
	// Backups kept per output file, zero keeps every one
	KeepBackups int
	// If true, the generated-by header is omitted
	NoHeader bool
}

var DefaultTransformOptions = TransformOptions{
	Parse:      ws2md.DefaultOptions,
	WriterMode: ws2md.ModeMarkdown,
}

func (t TransformOptions) Pretty() string {
	return fmt.Sprintf("mode=%s header=%s charset=%s backup=%s comments=%s",
		t.WriterMode,
		t.Parse.Header,
		t.Parse.Charset,
		boolToText(!t.NoBackup),
		boolToText(t.Writer.KeepComments))
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type Transformer struct {
	parser *ws2md.Parser
	writer *ws2md.Writer
	backup *ws2md.BackupManager

	opts TransformOptions
	now  func() time.Time
}

// NewTransformer creates a new Transformer instance with the specified options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	backup := ws2md.NewBackupManager()
	backup.Keep = opts.KeepBackups
	return &Transformer{
		parser: ws2md.NewParser(opts.Parse),
		writer: ws2md.NewWriter(opts.WriterMode, opts.Writer),
		backup: backup,
		opts:   opts,
		now:    time.Now,
	}
}

func (t *Transformer) Options() TransformOptions {
	return t.opts
}

type WordStarSource struct {
	Content  io.Reader
	Metadata ws2md.MetaData
}

// Parse classifies the source without rendering it
func (t *Transformer) Parse(input WordStarSource) (*ws2md.Document, error) {
	doc, err := t.parser.ParseWordStarDoc(input.Content, input.Metadata)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return doc, nil
}

// Transform writes the rendered document next to the source file and returns
// the absolute output path
func (t *Transformer) Transform(input WordStarSource) (string, error) {
	if input.Metadata.AbsSource == "" {
		return "", fmt.Errorf("abs source metadata is required for transformation")
	}
	return t.TransformToPath(input, ws2md.ResolveOutputPath(input.Metadata.AbsSource, "", t.writer.Mode()))
}

// TransformToPath forces output to a specific path
func (t *Transformer) TransformToPath(input WordStarSource, outputPath string) (string, error) {
	if outputPath == "" {
		return "", fmt.Errorf("output path is required for transformation")
	}
	slog.Debug("transforming document", "path", input.Metadata.AbsSource, "output", outputPath)

	// Parse before touching the output so a malformed source never clobbers it
	doc, err := t.Parse(input)
	if err != nil {
		return "", err
	}

	var bkPath string
	if !t.opts.NoBackup {
		bkPath, err = t.backup.CreateBackupOf(outputPath)
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
	}

	if bkPath != "" {
		slog.Info("file already existed. Created backup", "backup", bkPath, "original", outputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := t.render(doc, out); err != nil {
		return "", err
	}

	return outputPath, nil
}

// TransformToWriter renders the source into out, for stdout, HTTP responses
// and previews
func (t *Transformer) TransformToWriter(input WordStarSource, out io.Writer) (*ws2md.Document, error) {
	doc, err := t.Parse(input)
	if err != nil {
		return nil, err
	}
	if err := t.render(doc, out); err != nil {
		return nil, err
	}
	return doc, nil
}

func (t *Transformer) render(doc *ws2md.Document, out io.Writer) error {
	if !t.opts.NoHeader {
		source := doc.Metadata.AbsSource
		if source == "" {
			source = doc.Metadata.Source
		}
		metadata := ws2md.WriterMetadata{
			Version:   ws2md.VERSION,
			AbsSource: source,
			Generated: t.now().Format(time.RFC3339),
		}
		if err := t.writer.WriteHeader(out, metadata); err != nil {
			return fmt.Errorf("write header error: %w", err)
		}
	}

	if err := t.writer.WriteContent(doc, out); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}
