package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwtly10/ws2md/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestProcessor(workers int) *Processor {
	return NewProcessor(ProcessorOptions{
		Transform: transformer.TransformOptions{NoHeader: true, NoBackup: true},
		Workers:   workers,
	})
}

func TestProcessSingleFile(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, root, "letter.ws", ".h1 Dear\nHi\n\x1A")

	results, err := newTestProcessor(1).ProcessPath(src)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "letter.md"), results[0].OutPath)

	out, err := os.ReadFile(filepath.Join(root, "letter.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Dear\nHi\n", string(out))
}

func TestProcessDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ws", "a\n")
	writeFile(t, root, "sub/b.ws4", "b\n")
	writeFile(t, root, "sub/c.wsd", "c\n")
	writeFile(t, root, "notes.txt", "not wordstar\n")

	results, err := newTestProcessor(2).ProcessPath(root)
	require.NoError(t, err)

	var sources []string
	for _, r := range results {
		sources = append(sources, r.Path)
	}
	assert.Equal(t, []string{"a.ws", filepath.Join("sub", "b.ws4"), filepath.Join("sub", "c.wsd")}, sources)
	assert.FileExists(t, filepath.Join(root, "sub", "b.md"))
	assert.NoFileExists(t, filepath.Join(root, "notes.md"))
}

func TestProcessDirectoryRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	writeFile(t, root, ".gitignore", "# archives\narchive/\nscratch.ws\n")
	writeFile(t, root, "keep.ws", "keep\n")
	writeFile(t, root, "scratch.ws", "skip\n")
	writeFile(t, root, "archive/old.ws", "skip\n")
	writeFile(t, root, ".git/stray.ws", "skip\n")

	results, err := newTestProcessor(0).ProcessPath(root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep.ws", results[0].Path)
}

func TestProcessDirectoryWithoutSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", "hello\n")

	_, err := newTestProcessor(1).ProcessPath(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no WordStar files")
}

func TestProcessDirectoryMaxFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ws", "a\n")
	writeFile(t, root, "b.ws", "b\n")

	p := NewProcessor(ProcessorOptions{MaxFiles: 1})
	_, err := p.ProcessPath(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max files limit reached")
}

func TestProcessDirectoryCollectsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.ws", "fine\n")
	writeFile(t, root, "bad.ws", "broken \x7F\n")

	results, err := newTestProcessor(4).ProcessPath(root)
	require.Error(t, err)

	var batch *BatchError
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, 2, batch.Total)
	assert.Len(t, batch.Errors, 1)
	assert.True(t, IsMalformed(err))

	require.Len(t, results, 1)
	assert.Equal(t, "good.ws", results[0].Path)
}

func TestProcessFileTo(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, root, "memo.ws", "memo\n")
	out := filepath.Join(root, "out", "memo.md")

	res, err := newTestProcessor(1).ProcessFileTo(src, out)
	require.NoError(t, err)
	assert.Equal(t, out, res.OutPath)
	assert.FileExists(t, out)
}

func TestProcessMissingPath(t *testing.T) {
	_, err := newTestProcessor(1).ProcessPath(filepath.Join(t.TempDir(), "missing.ws"))
	require.Error(t, err)
}
