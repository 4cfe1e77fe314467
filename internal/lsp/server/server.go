package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	iLsp "github.com/jwtly10/ws2md/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// CommandConvert writes the converted document next to its source
const CommandConvert = "ws2md.convert"

// LSP error code for requests cancelled by the client
const codeRequestCancelled = -32800

type Server struct {
	conn *jsonrpc2.Conn
	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	countMu           sync.Mutex
	trackRequestCount map[string]int

	shutdown bool

	docService *iLsp.DocumentService
}

type Options struct {
	DocService iLsp.DocumentServiceOptions
}

var DefaultServerOptions = Options{
	DocService: iLsp.DefaultDocumentServiceOptions,
}

func NewServer(options Options) (*Server, error) {
	dService, err := iLsp.NewDocumentService(options.DocService)
	if err != nil {
		return nil, err
	}

	return &Server{
		docService:        dService,
		trackRequestCount: make(map[string]int),
	}, nil
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params for " + req.Method}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	if s.conn == nil {
		s.conn = conn
	}
	slog.Info("received request", "method", req.Method, "id", req.ID)
	s.countMu.Lock()
	s.trackRequestCount[req.Method]++
	s.countMu.Unlock()

	if _, ok := s.cancelMap.Load(req.ID.String()); ok {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, &jsonrpc2.Error{Code: codeRequestCancelled, Message: "request cancelled"}
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		var initParams lsp.InitializeParams
		if err := decodeParams(req, &initParams); err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"capabilities": map[string]interface{}{
				"textDocumentSync": map[string]interface{}{
					"openClose": true,
					"change":    lsp.TDSKFull,
					"save":      map[string]interface{}{"includeText": false},
				},
				"hoverProvider":          true,
				"documentSymbolProvider": true,
				"executeCommandProvider": map[string]interface{}{
					"commands": []string{CommandConvert},
				},
			},
			"serverInfo": map[string]interface{}{
				"name": "ws2md-ls",
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		s.shutdown = true
		s.printDebugStats()
		return nil, nil

	case "exit":
		slog.Info("exiting", "clean", s.shutdown)
		// The caller waits on DisconnectNotify
		go conn.Close()
		return nil, nil

	case "textDocument/didOpen":
		// Documents are classified on open, so problems show up immediately
		var params lsp.DidOpenTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		diags := s.docService.Update(params.TextDocument.URI, params.TextDocument.Text)
		return nil, s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: diags})

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		// Full sync: the last change carries the whole document
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		diags := s.docService.Update(params.TextDocument.URI, text)
		return nil, s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: diags})

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		slog.Debug("document saved", "uri", params.TextDocument.URI)
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		s.docService.Close(params.TextDocument.URI)
		return nil, s.SendDiagnostics(ctx, lsp.PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: []lsp.Diagnostic{}})

	case "textDocument/documentSymbol":
		var params lsp.DocumentSymbolParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.docService.Symbols(params.TextDocument.URI)

	case "textDocument/hover":
		var params lsp.TextDocumentPositionParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.docService.Hover(params.TextDocument.URI, params.Position)

	case "workspace/executeCommand":
		var params lsp.ExecuteCommandParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.executeCommand(params)

	case "$/cancelRequest":
		var params lsp.CancelParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		slog.Debug("canceling request", "id", params.ID)
		s.cancelMap.Store(params.ID.String(), struct{}{})
		return nil, nil

	default:
		if req.Notif {
			slog.Debug("ignoring notification", "method", req.Method)
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

func (s *Server) executeCommand(params lsp.ExecuteCommandParams) (interface{}, error) {
	if params.Command != CommandConvert {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "unknown command: " + params.Command}
	}
	if len(params.Arguments) != 1 {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: CommandConvert + " takes the document URI"}
	}
	uri, ok := params.Arguments[0].(string)
	if !ok {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("document URI must be a string, got %T", params.Arguments[0])}
	}

	out, err := s.docService.Convert(lsp.DocumentURI(uri))
	if err != nil {
		return nil, err
	}
	slog.Info("converted document", "uri", uri, "output", out)
	return out, nil
}

func (s *Server) SendDiagnostics(ctx context.Context, params lsp.PublishDiagnosticsParams) error {
	if s.conn == nil {
		return fmt.Errorf("no client connection")
	}
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", params)
}

func (s *Server) printDebugStats() {
	s.countMu.Lock()
	defer s.countMu.Unlock()

	methods := make([]string, 0, len(s.trackRequestCount))
	for m := range s.trackRequestCount {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		slog.Debug(fmt.Sprintf("Method: %-30s Count: %d", m, s.trackRequestCount[m]))
	}
}
