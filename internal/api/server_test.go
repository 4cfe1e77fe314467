package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwtly10/ws2md/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Header:         "auto",
		Charset:        "utf8",
		Format:         "markdown",
		NoHeader:       true,
		MaxUploadBytes: 64,
	}
	require.NoError(t, cfg.Validate())
	return NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func post(t *testing.T, s *Server, query, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/convert"+query, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConvert(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name        string
		query       string
		body        string
		contentType string
		want        string
	}{
		{
			name:        "markdown by default",
			body:        ".h1 Title\nsome \x02bold\x02 text\n\x1A",
			contentType: "text/markdown; charset=utf-8",
			want:        "# Title\nsome **bold** text\n",
		},
		{
			name:        "html",
			query:       "?format=html",
			body:        ".h2 Title\n",
			contentType: "text/html; charset=utf-8",
			want:        "<h2>Title</h2>\n",
		},
		{
			name:        "seven bit charset",
			query:       "?charset=7bit",
			body:        "caf\xe5\n",
			contentType: "text/markdown; charset=utf-8",
			want:        "cafe\n",
		},
		{
			name:        "kept comments",
			query:       "?comments=true",
			body:        "..note\n",
			contentType: "text/markdown; charset=utf-8",
			want:        "<!-- note -->\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, tt.query, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestConvertEvents(t *testing.T) {
	rec := post(t, newTestServer(t), "?format=events&name=/tmp/letter.ws", ".pa\nhi\n")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
		Events []struct {
			Kind    string `json:"kind"`
			Command *struct {
				Kind string `json:"kind"`
			} `json:"command"`
			Runs []struct {
				Text  string `json:"text"`
				Style string `json:"style"`
			} `json:"runs"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	assert.Equal(t, "letter.ws", doc.Metadata.Source)
	require.Len(t, doc.Events, 3)
	assert.Equal(t, "dot_command", doc.Events[0].Kind)
	assert.Equal(t, "page_break", doc.Events[0].Command.Kind)
	assert.Equal(t, "text", doc.Events[1].Kind)
	assert.Equal(t, "hi", doc.Events[1].Runs[0].Text)
	assert.Equal(t, "plain", doc.Events[1].Runs[0].Style)
	assert.Equal(t, "eof", doc.Events[2].Kind)
}

func TestConvertMalformed(t *testing.T) {
	rec := post(t, newTestServer(t), "", "bad \x7F\n")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "malformed input")
	assert.EqualValues(t, 4, body["offset"])
	assert.EqualValues(t, 1, body["line"])
}

func TestConvertRejectsBadOptions(t *testing.T) {
	for _, query := range []string{"?format=pdf", "?header=sometimes", "?charset=ebcdic"} {
		t.Run(query, func(t *testing.T) {
			rec := post(t, newTestServer(t), query, "x\n")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestConvertTooLarge(t *testing.T) {
	rec := post(t, newTestServer(t), "", strings.Repeat("a", 65))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFixedHeaderTooShort(t *testing.T) {
	rec := post(t, newTestServer(t), "?header=fixed", "short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/convert", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
