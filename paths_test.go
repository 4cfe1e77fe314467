package ws2md

import (
	"path/filepath"
	"testing"
)

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		wsPath string
		output string
		mode   WriteMode
		want   string
	}{
		{
			name:   "no_output_simple",
			wsPath: "letter.ws",
			mode:   ModeMarkdown,
			want:   "letter.md",
		},
		{
			name:   "no_output_with_path",
			wsPath: "/home/user/docs/letter.ws5",
			mode:   ModeMarkdown,
			want:   "/home/user/docs/letter.md",
		},
		{
			name:   "html_mode",
			wsPath: "/home/user/docs/letter.ws",
			mode:   ModeHTML,
			want:   "/home/user/docs/letter.html",
		},
		{
			name:   "with_output_relative",
			wsPath: "letter.ws",
			output: "out.md",
			mode:   ModeMarkdown,
			want:   "out.md",
		},
		{
			name:   "with_output_and_path",
			wsPath: "/home/user/docs/letter.ws",
			output: "converted/letter.md",
			mode:   ModeMarkdown,
			want:   "/home/user/docs/converted/letter.md",
		},
		{
			name:   "with_absolute_output",
			wsPath: "/home/user/docs/letter.ws",
			output: "/tmp/letter.md",
			mode:   ModeMarkdown,
			want:   "/tmp/letter.md",
		},
		{
			name:   "nested_path_no_output",
			wsPath: "archive/1988/memo.wsd",
			mode:   ModeMarkdown,
			want:   "archive/1988/memo.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveOutputPath(tt.wsPath, tt.output, tt.mode)

			// Use filepath.Clean to normalize paths for comparison
			if filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("ResolveOutputPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"letter.ws", true},
		{"LETTER.WS4", true},
		{"dir/memo.wsd", true},
		{"notes.md", false},
		{"ws", false},
		{"archive.ws.bak", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSourceFile(tt.path); got != tt.want {
				t.Errorf("IsSourceFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
