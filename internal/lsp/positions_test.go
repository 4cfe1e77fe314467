package lsp

import (
	"testing"

	"github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/assert"
)

func TestLineIndexPosition(t *testing.T) {
	text := "ab\r\ncd\ref\nü𝄞x"
	idx := newLineIndex(text)

	tests := []struct {
		name   string
		offset int
		want   lsp.Position
	}{
		{"start", 0, lsp.Position{Line: 0, Character: 0}},
		{"before crlf", 2, lsp.Position{Line: 0, Character: 2}},
		{"after crlf", 4, lsp.Position{Line: 1, Character: 0}},
		{"after lone cr", 7, lsp.Position{Line: 2, Character: 0}},
		{"after lf", 10, lsp.Position{Line: 3, Character: 0}},
		// ü is two bytes and one unit, the clef four bytes and two units
		{"utf16 units", 16, lsp.Position{Line: 3, Character: 3}},
		{"clamped", 1000, lsp.Position{Line: 3, Character: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.position(tt.offset))
		})
	}

	assert.Equal(t, lsp.Position{Line: 0, Character: 2}, idx.lineEnd(0))
	assert.Equal(t, lsp.Position{Line: 1, Character: 2}, idx.lineEnd(1))
	assert.Equal(t, lsp.Position{Line: 3, Character: 4}, idx.lineEnd(3))
}
