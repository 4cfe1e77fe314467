package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwtly10/ws2md/internal/config"
	"github.com/jwtly10/ws2md/internal/lsp/server"
	"github.com/sourcegraph/jsonrpc2"
)

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".ws2md")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "ws2md-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "ws2md-ls-*.log")
}

func main() {
	var debug bool
	var cfgFile string
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfgFile, "config", "", "Config file (default: ./ws2md.yaml or ~/.config/ws2md/ws2md.yaml)")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	// stdout carries the protocol, so logs never go there
	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	} else {
		handler = slog.NewTextHandler(logFile, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting ws2md-ls", "logfile", logFile.Name())

	v := config.NewViper(cfgFile)
	if err := config.ReadFile(v); err != nil {
		slog.Error("failed to read config", "error", err)
		os.Exit(1)
	}
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	opts := server.DefaultServerOptions
	opts.DocService.Parse = cfg.ParseOptions()
	opts.DocService.ConvertTransformerOpts = cfg.TransformOptions()

	s, err := server.NewServer(opts)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	<-jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(server.NewStdRWC(), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()

	slog.Info("client disconnected")
}
