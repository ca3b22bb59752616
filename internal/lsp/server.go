package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"fishls/internal/analysis"
	"fishls/internal/config"
	"fishls/internal/diagcache"
	"fishls/internal/trace"
	"fishls/internal/watch"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Analyzer is shared with the caller; nil creates a fresh one.
	Analyzer *analysis.Analyzer
	// ConfigPath pins the configuration file. When empty the file is
	// searched for upward from the workspace root.
	ConfigPath string
	// Env looks up environment variables; nil means os.LookupEnv.
	Env func(string) (string, bool)
	// Overrides is applied to every configuration loaded at initialize,
	// after the file and the environment.
	Overrides func(*config.Config)
	// Watch re-indexes fish files changed on disk.
	Watch bool
	// Debounce overrides the configured debounce when positive.
	Debounce time.Duration
	Logf     func(format string, args ...any)
}

// Server speaks LSP over a JSON-RPC 2.0 stream.
type Server struct {
	opts     ServerOptions
	analyzer *analysis.Analyzer
	config   *config.Store
	logf     func(format string, args ...any)

	ctx   context.Context
	cache *diagcache.Cache

	mu                sync.Mutex
	conn              *jsonrpc2.Conn
	workspaceRoot     string
	workDoneProgress  bool
	initialized       bool
	shutdownRequested bool
	exitErr           error
	watcher           *watch.Watcher
	indexed           chan struct{}
}

// NewServer constructs a new LSP server.
func NewServer(opts ServerOptions) *Server {
	a := opts.Analyzer
	if a == nil {
		a = analysis.New(analysis.Options{})
	}
	s := &Server{
		opts:     opts,
		analyzer: a,
		config:   a.Config(),
		logf:     opts.Logf,
		indexed:  make(chan struct{}),
	}
	if s.logf == nil {
		s.logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
		}
	}
	return s
}

// Run serves LSP requests on rwc until the client exits, the stream
// closes or ctx is cancelled. It returns ErrExit or ErrExitWithoutShutdown
// after an "exit" notification and nil when the stream simply ends.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx
	s.cache = diagcache.New(ctx, diagcache.Options{
		Compute:  s.analyzer.Diagnostics,
		Publish:  s.publish,
		Debounce: s.debounce,
		Enabled: func() bool {
			return s.config.Snapshot().HandlerEnabled(config.HandlerDiagnostic)
		},
		Logf: s.logf,
	})
	defer trace.RegisterGauge("pending", s.cache.PendingCount)()
	defer trace.RegisterGauge("symbols", s.analyzer.Index().Len)()

	handler := jsonrpc2.HandlerWithError(s.handle).SuppressErrClosed()
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), handler)
	s.bind(conn)

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		_ = conn.Close()
	}
	cancel()
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

func (s *Server) bind(conn *jsonrpc2.Conn) {
	s.mu.Lock()
	if s.conn == nil {
		s.conn = conn
	}
	s.mu.Unlock()
}

func (s *Server) stop() {
	s.cache.Stop()
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

func (s *Server) debounce() time.Duration {
	if s.opts.Debounce > 0 {
		return s.opts.Debounce
	}
	return s.config.Snapshot().DebounceDuration()
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	s.bind(conn)
	if req.Method != "exit" && s.isShutdown() {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}
	return s.handleMessage(ctx, conn, req)
}

func (s *Server) handleMessage(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil, s.handleInitialized()
	case "shutdown":
		return s.handleShutdown()
	case "exit":
		return nil, s.handleExit(conn)
	case "workspace/didChangeConfiguration":
		return nil, s.handleDidChangeConfiguration(req)
	case "textDocument/didOpen":
		return nil, s.handleDidOpen(ctx, req)
	case "textDocument/didChange":
		return nil, s.handleDidChange(ctx, req)
	case "textDocument/didSave":
		return nil, s.handleDidSave(ctx, req)
	case "textDocument/didClose":
		return nil, s.handleDidClose(ctx, req)
	case "textDocument/definition":
		return s.handleDefinition(ctx, req)
	case "textDocument/references":
		return s.handleReferences(ctx, req)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(ctx, req)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(req)
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) enabled(handler string) bool {
	return s.config.Snapshot().HandlerEnabled(handler)
}

func (s *Server) notify(method string, params any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Notify(s.ctx, method, params); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		s.logf("notify %s: %v", method, err)
	}
}

// Indexed is closed once the background workspace index finished.
func (s *Server) Indexed() <-chan struct{} {
	return s.indexed
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}
