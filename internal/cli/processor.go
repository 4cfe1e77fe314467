package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/jwtly10/ws2md"
	"github.com/jwtly10/ws2md/internal/transformer"
)

const (
	defaultMaxFiles   = 500
	defaultMaxWorkers = 4
)

type ConvertResult struct {
	Path     string
	OutPath  string
	Duration time.Duration
}

type ProcessResult struct {
	Path     string
	OutPath  string
	Duration time.Duration
	Error    error
}

type ProcessorOptions struct {
	Transform transformer.TransformOptions
	// Number of files converted concurrently
	Workers int
	// Upper bound on files picked up from one directory walk
	MaxFiles int
}

type Processor struct {
	transformer *transformer.Transformer
	workers     int
	maxFiles    int
}

func NewProcessor(opts ProcessorOptions) *Processor {
	p := &Processor{
		transformer: transformer.NewTransformer(opts.Transform),
		workers:     opts.Workers,
		maxFiles:    opts.MaxFiles,
	}
	if p.workers <= 0 {
		p.workers = defaultMaxWorkers
	}
	if p.maxFiles <= 0 {
		p.maxFiles = defaultMaxFiles
	}
	return p
}

// ProcessPath converts a single file, or every WordStar file below a directory
func (p *Processor) ProcessPath(path string) ([]ConvertResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path: %w", err)
	}

	if info.IsDir() {
		return p.processDirectory(path)
	}

	result := p.processFile(path, "")
	if result.Error != nil {
		return nil, result.Error
	}

	return []ConvertResult{{
		Path:     result.Path,
		OutPath:  result.OutPath,
		Duration: result.Duration,
	}}, nil
}

// ProcessFileTo converts one file to an explicit output path
func (p *Processor) ProcessFileTo(path, outPath string) (ConvertResult, error) {
	result := p.processFile(path, outPath)
	if result.Error != nil {
		return ConvertResult{}, result.Error
	}
	return ConvertResult{Path: result.Path, OutPath: result.OutPath, Duration: result.Duration}, nil
}

// findFiles walks the directory tree starting at root and returns a list of convertible files
//
// If a .git directory is found, it will be used to load .gitignore patterns.
func (p *Processor) findFiles(root string) ([]string, error) {
	var files []string
	var patterns []gitignore.Pattern

	// If .git exists, set up gitignore patterns
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		patterns = append(patterns, gitignore.ParsePattern(".git/", nil))

		if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
			for _, p := range strings.Split(string(data), "\n") {
				if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
					patterns = append(patterns, gitignore.ParsePattern(p, nil))
				}
			}
		}
	}

	matcher := gitignore.NewMatcher(patterns)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		pathComponents := strings.Split(relPath, string(os.PathSeparator))

		if len(patterns) > 0 && relPath != "." {
			if matcher.Match(pathComponents, info.IsDir()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !info.IsDir() && ws2md.IsSourceFile(path) {
			if len(files) >= p.maxFiles {
				return fmt.Errorf("max files limit reached (%d)", p.maxFiles)
			}
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no WordStar files (%s) found", strings.Join(ws2md.SourceExtensions, " "))
	}

	return files, nil
}

func (p *Processor) processDirectory(root string) ([]ConvertResult, error) {
	startTime := time.Now()
	slog.Debug("starting directory processing", "path", root)
	files, err := p.findFiles(root)
	if err != nil {
		return nil, err
	}

	slog.Debug("found files to process", "count", len(files), "duration", time.Since(startTime))

	jobs := make(chan string, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- p.processFile(path, "")
			}
		}()
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	var converted []ConvertResult

	absRoot, _ := filepath.Abs(root)
	for result := range results {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("failed to process %s: %w", result.Path, result.Error))
			slog.Debug("failed to process file", "path", result.Path, "error", result.Error)
			continue
		}

		relSource, _ := filepath.Rel(absRoot, result.Path)
		relOut, _ := filepath.Rel(absRoot, result.OutPath)

		converted = append(converted, ConvertResult{
			Path:     relSource,
			OutPath:  relOut,
			Duration: result.Duration,
		})

		slog.Debug("file converted",
			"source", relSource,
			"output", relOut,
		)
	}

	sort.Slice(converted, func(i, j int) bool { return converted[i].Path < converted[j].Path })

	if len(errs) > 0 {
		return converted, &BatchError{Errors: errs, Total: len(files)}
	}

	slog.Debug("conversion completed", "duration", time.Since(startTime), "processed", len(converted))
	return converted, nil
}

// BatchError collects the per-file failures of a directory run
type BatchError struct {
	Errors []error
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("encountered %d errors converting %d files. Please rerun with --debug to see trace", len(e.Errors), e.Total)
}

func (e *BatchError) Unwrap() []error {
	return e.Errors
}

func (p *Processor) processFile(path, outPath string) ProcessResult {
	startTime := time.Now()
	var result ProcessResult

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve absolute path: %w", err)
		return result
	}

	result.Path = absPath

	slog.Debug("processing file", "path", absPath)

	content, err := os.ReadFile(absPath)
	if err != nil {
		result.Error = fmt.Errorf("error reading file: %w", err)
		return result
	}

	src := transformer.WordStarSource{
		Content: bytes.NewReader(content),
		Metadata: ws2md.MetaData{
			Source:    path,
			AbsSource: absPath,
		},
	}

	if outPath == "" {
		result.OutPath, err = p.transformer.Transform(src)
	} else {
		result.OutPath, err = p.transformer.TransformToPath(src, outPath)
	}
	if err != nil {
		result.Error = err
		return result
	}

	result.Duration = time.Since(startTime)
	slog.Debug("file processed",
		"path", absPath,
		"duration", result.Duration)

	return result
}

// IsMalformed reports whether any failure in err is a classification failure
func IsMalformed(err error) bool {
	return errors.Is(err, ws2md.ErrMalformedInput)
}
