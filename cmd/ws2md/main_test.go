package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with a config file that omits the generated-by header
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	cfg := filepath.Join(t.TempDir(), "ws2md.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("no_header: true\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootWritesToStdout(t *testing.T) {
	src := writeSource(t, "letter.ws", ".h1 Dear\n\x02Hello\x02 there\n\x1A")

	out, err := execute(t, src)
	require.NoError(t, err)
	assert.Equal(t, "# Dear\n**Hello** there\n", out)
}

func TestRootHTMLFlag(t *testing.T) {
	src := writeSource(t, "letter.ws", ".h1 Dear\n")

	out, err := execute(t, "--format", "html", src)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Dear</h1>\n", out)
}

func TestRootWritesOutputFile(t *testing.T) {
	src := writeSource(t, "letter.ws", "text\n")
	dest := filepath.Join(t.TempDir(), "out.md")

	_, err := execute(t, src, dest)
	require.NoError(t, err)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "text\n", string(content))
}

func TestRootRejectsBadOption(t *testing.T) {
	src := writeSource(t, "letter.ws", "text\n")

	_, err := execute(t, "--charset", "ebcdic", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConvertDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ws"), []byte("a\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ws"), []byte("b\n"), 0644))

	out, err := execute(t, "convert", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Equal(t, "a.ws -> a.md\nb.ws -> b.md\n", out)
	assert.FileExists(t, filepath.Join(dir, "b.md"))
}

func TestConvertReportsMalformedFiles(t *testing.T) {
	src := writeSource(t, "bad.ws", "x\x7F\n")

	_, err := execute(t, "convert", src)
	require.Error(t, err)
}

func TestEvents(t *testing.T) {
	src := writeSource(t, "memo.ws", ".lm 4\nhi\n")

	out, err := execute(t, "events", src)
	require.NoError(t, err)

	var doc struct {
		Events []map[string]interface{} `yaml:"events"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Events, 3)
	assert.Equal(t, "dot_command", doc.Events[0]["kind"])
	assert.Equal(t, map[string]interface{}{"kind": "left_margin", "margin": 4}, doc.Events[0]["command"])
	assert.Equal(t, "eof", doc.Events[2]["kind"])

	out, err = execute(t, "events", "--output", "json", src)
	require.NoError(t, err)
	var jsonDoc struct {
		Events []struct {
			Kind string `json:"kind"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &jsonDoc))
	assert.Equal(t, "text", jsonDoc.Events[1].Kind)

	_, err = execute(t, "events", "--output", "xml", src)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ws2md v")
}
