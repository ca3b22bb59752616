package lsp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"fishls/internal/config"
	"fishls/internal/source"
	"fishls/internal/version"
)

// ServerName is reported to clients in the initialize result.
const ServerName = "fishls"

func (s *Server) handleInitialize(req *jsonrpc2.Request) (any, error) {
	var params protocol.InitializeParams
	if req.Params != nil {
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
	}
	root := workspaceRoot(&params)

	cfg, path, err := config.Resolve(config.Options{
		Path:     s.opts.ConfigPath,
		StartDir: resolveStartDir(root),
		Env:      s.opts.Env,
	})
	switch {
	case err != nil:
		s.logf("config: %v; using defaults", err)
		cfg = s.config.Snapshot().Clone()
	case path != "":
		s.logf("config: loaded %s", path)
	}
	if s.opts.Overrides != nil {
		s.opts.Overrides(cfg)
	}
	if params.InitializationOptions != nil {
		raw, err := json.Marshal(params.InitializationOptions)
		if err == nil {
			var next *config.Config
			next, err = config.ApplySettings(cfg, raw)
			if err == nil {
				cfg = next
			}
		}
		if err != nil {
			s.logf("initializationOptions: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		s.logf("config: %v; using defaults", err)
		cfg = config.Default()
	}
	s.config.Set(cfg)

	s.mu.Lock()
	s.workspaceRoot = root
	s.workDoneProgress = params.Capabilities.Window != nil && params.Capabilities.Window.WorkDoneProgress
	s.mu.Unlock()

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			DefinitionProvider:      cfg.HandlerEnabled(config.HandlerDefinition),
			ReferencesProvider:      cfg.HandlerEnabled(config.HandlerReferences),
			DocumentSymbolProvider:  cfg.HandlerEnabled(config.HandlerDocumentSymbol),
			WorkspaceSymbolProvider: cfg.HandlerEnabled(config.HandlerWorkspaceSymbol),
		},
		ServerInfo: &protocol.ServerInfo{Name: ServerName, Version: version.Version},
	}, nil
}

// workspaceRoot prefers rootUri, then rootPath, then the first workspace
// folder.
func workspaceRoot(params *protocol.InitializeParams) string {
	root := ""
	if params.RootURI != "" {
		root = source.URIToPath(string(params.RootURI))
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = source.URIToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return root
}

func resolveStartDir(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func (s *Server) handleInitialized() error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true
	root := s.workspaceRoot
	s.mu.Unlock()

	cfg := s.config.Snapshot()
	if !cfg.HandlerEnabled(config.HandlerIndex) {
		close(s.indexed)
		return nil
	}
	roots := slices.Clone(cfg.Workspace.Paths)
	if root != "" && !slices.Contains(roots, root) {
		roots = append(roots, root)
	}
	go s.indexWorkspace(roots)
	return nil
}

func (s *Server) handleShutdown() (any, error) {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.cache.Stop()
	return nil, nil
}

func (s *Server) handleExit(conn *jsonrpc2.Conn) error {
	s.mu.Lock()
	if s.shutdownRequested {
		s.exitErr = ErrExit
	} else {
		s.exitErr = ErrExitWithoutShutdown
	}
	s.mu.Unlock()
	return conn.Close()
}
