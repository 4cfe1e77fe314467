package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/jwtly10/ws2md"
	"github.com/jwtly10/ws2md/internal/transformer"
)

const formatEvents = "events"

type convertRequest struct {
	events bool
	opts   transformer.TransformOptions
	name   string
}

// parseConvertRequest overlays the query parameters on the server defaults
func (s *Server) parseConvertRequest(r *http.Request) (convertRequest, error) {
	q := r.URL.Query()
	req := convertRequest{opts: s.cfg.TransformOptions()}

	if v := q.Get("header"); v != "" {
		mode, err := ws2md.ParseHeaderMode(v)
		if err != nil {
			return req, err
		}
		req.opts.Parse.Header = mode
	}
	if v := q.Get("charset"); v != "" {
		cs, err := ws2md.ParseCharset(v)
		if err != nil {
			return req, err
		}
		req.opts.Parse.Charset = cs
	}
	if v := q.Get("format"); v != "" {
		if strings.EqualFold(v, formatEvents) {
			req.events = true
		} else {
			mode, err := ws2md.ParseWriteMode(v)
			if err != nil {
				return req, err
			}
			req.opts.WriterMode = mode
		}
	}
	if v := q.Get("comments"); v != "" {
		req.opts.Writer.KeepComments = v == "true" || v == "1"
	}

	req.name = path.Base(q.Get("name"))
	if req.name == "." || req.name == "/" {
		req.name = ""
	}
	return req, nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseConvertRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	tr := transformer.NewTransformer(req.opts)
	src := transformer.WordStarSource{
		Content:  bytes.NewReader(data),
		Metadata: ws2md.MetaData{Source: req.name},
	}

	if req.events {
		doc, err := tr.Parse(src)
		if err != nil {
			s.parseError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
		return
	}

	// Render fully before writing so a failure never leaves a partial body
	var buf bytes.Buffer
	if _, err := tr.TransformToWriter(src, &buf); err != nil {
		s.parseError(w, err)
		return
	}

	if tr.Options().WriterMode == ws2md.ModeHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	w.Write(buf.Bytes())
}

func (s *Server) parseError(w http.ResponseWriter, err error) {
	var malformed *ws2md.MalformedInputError
	if errors.As(err, &malformed) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  malformed.Error(),
			"offset": malformed.Offset,
			"line":   malformed.Line,
			"column": malformed.Column,
			"rule":   malformed.Rule,
		})
		return
	}
	s.log.Debug("conversion failed", "error", err)
	jsonError(w, err.Error(), http.StatusBadRequest)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
