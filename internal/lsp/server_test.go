package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"fishls/internal/source"
)

type testClient struct {
	t        *testing.T
	srv      *Server
	conn     *jsonrpc2.Conn
	diags    chan protocol.PublishDiagnosticsParams
	progress chan string

	done     chan error
	stopOnce sync.Once
	runErr   error
}

func newTestClient(t *testing.T, opts ServerOptions) *testClient {
	t.Helper()
	if opts.Env == nil {
		opts.Env = func(string) (string, bool) { return "", false }
	}
	if opts.Debounce == 0 {
		opts.Debounce = 10 * time.Millisecond
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	serverSide, clientSide := net.Pipe()
	c := &testClient{
		t:        t,
		srv:      NewServer(opts),
		diags:    make(chan protocol.PublishDiagnosticsParams, 256),
		progress: make(chan string, 256),
		done:     make(chan error, 1),
	}
	go func() { c.done <- c.srv.Run(context.Background(), serverSide) }()
	c.conn = jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(c.handle))
	t.Cleanup(func() {
		_ = c.conn.Close()
		c.wait()
	})
	return c
}

func (c *testClient) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Params == nil {
		return nil, nil
	}
	switch req.Method {
	case "textDocument/publishDiagnostics":
		var p protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(*req.Params, &p); err == nil {
			c.diags <- p
		}
	case "$/progress":
		var p struct {
			Value struct {
				Kind string `json:"kind"`
			} `json:"value"`
		}
		if err := json.Unmarshal(*req.Params, &p); err == nil {
			c.progress <- p.Value.Kind
		}
	}
	return nil, nil
}

// wait returns the result of Run.
func (c *testClient) wait() error {
	c.stopOnce.Do(func() {
		select {
		case c.runErr = <-c.done:
		case <-time.After(5 * time.Second):
			c.runErr = errors.New("server did not stop")
		}
	})
	return c.runErr
}

func (c *testClient) call(method string, params, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	if err := c.conn.Notify(context.Background(), method, params); err != nil {
		c.t.Fatalf("notify %s: %v", method, err)
	}
}

func (c *testClient) initialize(root string, progress bool) protocol.InitializeResult {
	c.t.Helper()
	params := protocol.InitializeParams{}
	if root != "" {
		params.RootURI = protocol.DocumentURI(source.PathToURI(root))
	}
	if progress {
		params.Capabilities.Window = &protocol.WindowClientCapabilities{WorkDoneProgress: true}
	}
	var result protocol.InitializeResult
	if err := c.call("initialize", params, &result); err != nil {
		c.t.Fatalf("initialize: %v", err)
	}
	c.notify("initialized", struct{}{})
	return result
}

func (c *testClient) open(path, text string) string {
	c.t.Helper()
	uri := source.PathToURI(path)
	c.notify("textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentURI(uri), LanguageID: "fish", Version: 1, Text: text},
	})
	return uri
}

// awaitDiagnostics reads publications until one for uri satisfies ok.
func (c *testClient) awaitDiagnostics(uri string, ok func([]protocol.Diagnostic) bool) []protocol.Diagnostic {
	c.t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-c.diags:
			if string(p.URI) == uri && ok(p.Diagnostics) {
				return p.Diagnostics
			}
		case <-timeout:
			c.t.Fatalf("no matching diagnostics for %s", uri)
			return nil
		}
	}
}

func hasCode(code int) func([]protocol.Diagnostic) bool {
	return func(list []protocol.Diagnostic) bool {
		for _, d := range list {
			if n, ok := d.Code.(float64); ok && int(n) == code {
				return true
			}
		}
		return false
	}
}

func isEmpty(list []protocol.Diagnostic) bool { return len(list) == 0 }

func not(f func([]protocol.Diagnostic) bool) func([]protocol.Diagnostic) bool {
	return func(list []protocol.Diagnostic) bool { return !f(list) }
}

func TestInitializeCapabilities(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	result := c.initialize(t.TempDir(), false)

	if result.ServerInfo == nil || result.ServerInfo.Name != ServerName {
		t.Fatalf("unexpected server info: %+v", result.ServerInfo)
	}
	syncOpts, ok := result.Capabilities.TextDocumentSync.(map[string]any)
	if !ok {
		t.Fatalf("textDocumentSync: got %T", result.Capabilities.TextDocumentSync)
	}
	if syncOpts["change"] != float64(protocol.TextDocumentSyncKindIncremental) {
		t.Fatalf("expected incremental sync, got %v", syncOpts["change"])
	}
	for name, v := range map[string]any{
		"definition":      result.Capabilities.DefinitionProvider,
		"references":      result.Capabilities.ReferencesProvider,
		"documentSymbol":  result.Capabilities.DocumentSymbolProvider,
		"workspaceSymbol": result.Capabilities.WorkspaceSymbolProvider,
	} {
		if v != true {
			t.Errorf("%s provider: got %v", name, v)
		}
	}
}

func TestInitializeHonoursDisabledHandlers(t *testing.T) {
	env := map[string]string{"fish_lsp_disabled_handlers": "references"}
	c := newTestClient(t, ServerOptions{Env: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}})
	result := c.initialize("", false)
	if result.Capabilities.ReferencesProvider != false {
		t.Fatalf("references should be disabled, got %v", result.Capabilities.ReferencesProvider)
	}

	var refs []protocol.Location
	err := c.call("textDocument/references", protocol.ReferenceParams{}, &refs)
	if err != nil || refs != nil {
		t.Fatalf("disabled handler: refs=%v err=%v", refs, err)
	}
}

func TestDiagnosticsPublishedOnOpen(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "aliases.fish"), "alias ll 'ls -l'\n")

	list := c.awaitDiagnostics(uri, hasCode(2002))
	for _, d := range list {
		if n, _ := d.Code.(float64); int(n) != 2002 {
			continue
		}
		if d.Source != "fish-lsp" || d.Severity == 0 || d.Range.Start.Line != 0 {
			t.Fatalf("unexpected diagnostic: %+v", d)
		}
	}
}

func TestIncrementalChangeRecomputes(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "script.fish"), "echo hi\n")
	c.awaitDiagnostics(uri, isEmpty)

	c.notify("textDocument/didChange", map[string]any{
		"textDocument": map[string]any{"uri": uri, "version": 2},
		"contentChanges": []map[string]any{{
			"range": protocol.Range{Start: protocol.Position{Line: 1}, End: protocol.Position{Line: 1}},
			"text":  "alias ll 'ls -l'\n",
		}},
	})
	c.awaitDiagnostics(uri, hasCode(2002))

	// a change without a range replaces the document
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 3},
		"contentChanges": []map[string]any{{"text": "echo clean\n"}},
	})
	c.awaitDiagnostics(uri, isEmpty)
}

func TestWorkspaceSymbolsFollowEditsWithoutDiagnostics(t *testing.T) {
	env := map[string]string{"fish_lsp_disabled_handlers": "diagnostic"}
	c := newTestClient(t, ServerOptions{Env: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "conf.d", "setup.fish"), "function before_edit\nend\n")

	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 2},
		"contentChanges": []map[string]any{{"text": "function after_edit\nend\n"}},
	})

	var after, before []protocol.SymbolInformation
	if err := c.call("workspace/symbol", protocol.WorkspaceSymbolParams{Query: "after_"}, &after); err != nil {
		t.Fatalf("workspace/symbol: %v", err)
	}
	if len(after) != 1 || after[0].Name != "after_edit" {
		t.Fatalf("edited symbol missing: %+v", after)
	}
	if err := c.call("workspace/symbol", protocol.WorkspaceSymbolParams{Query: "before_"}, &before); err != nil {
		t.Fatalf("workspace/symbol: %v", err)
	}
	if len(before) != 0 {
		t.Fatalf("stale symbol still indexed: %+v", before)
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "aliases.fish"), "alias ll 'ls -l'\n")
	c.awaitDiagnostics(uri, hasCode(2002))

	c.notify("textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
	c.awaitDiagnostics(uri, isEmpty)
}

func TestDidChangeConfigurationDisablesCode(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "aliases.fish"), "alias ll 'ls -l'\n")
	c.awaitDiagnostics(uri, hasCode(2002))

	c.notify("workspace/didChangeConfiguration", map[string]any{
		"settings": map[string]any{"fishls": map[string]any{
			"diagnostics": map[string]any{"disabledCodes": []int{2002}},
		}},
	})
	c.awaitDiagnostics(uri, not(hasCode(2002)))
}

// "😀" is four bytes and two UTF-16 units, so wire columns after it differ
// from byte columns.
const utf16Src = "function greet\nend\necho \"😀\" | greet\n"

func TestDefinitionUsesUTF16Columns(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "emoji.fish"), utf16Src)

	var locs []protocol.Location
	params := protocol.DefinitionParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Position:     protocol.Position{Line: 2, Character: 13},
	}}
	if err := c.call("textDocument/definition", params, &locs); err != nil {
		t.Fatalf("definition: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected one location, got %v", locs)
	}
	want := protocol.Range{Start: protocol.Position{Line: 0, Character: 9}, End: protocol.Position{Line: 0, Character: 14}}
	if locs[0].Range != want || string(locs[0].URI) != uri {
		t.Fatalf("unexpected location %+v", locs[0])
	}

	var refs []protocol.Location
	refParams := protocol.ReferenceParams{
		TextDocumentPositionParams: params.TextDocumentPositionParams,
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	}
	if err := c.call("textDocument/references", refParams, &refs); err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected the call site only, got %v", refs)
	}
	wantRef := protocol.Range{Start: protocol.Position{Line: 2, Character: 12}, End: protocol.Position{Line: 2, Character: 17}}
	if refs[0].Range != wantRef {
		t.Fatalf("reference range: got %+v want %+v", refs[0].Range, wantRef)
	}
}

func TestDocumentSymbols(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	uri := c.open(filepath.Join(t.TempDir(), "outline.fish"), "set -l name x\nfunction greet\n    set -l inner y\nend\n")

	var syms []protocol.DocumentSymbol
	err := c.call("textDocument/documentSymbol", protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}, &syms)
	if err != nil {
		t.Fatalf("documentSymbol: %v", err)
	}
	if len(syms) != 2 || syms[0].Name != "name" || syms[1].Name != "greet" {
		t.Fatalf("unexpected outline %+v", syms)
	}
	if syms[1].Kind != protocol.SymbolKindFunction || syms[0].Kind != protocol.SymbolKindVariable {
		t.Fatalf("unexpected kinds %v %v", syms[0].Kind, syms[1].Kind)
	}
	found := false
	for _, child := range syms[1].Children {
		if child.Name == "inner" {
			found = true
		}
	}
	if !found {
		t.Fatalf("inner variable missing from %+v", syms[1].Children)
	}
}

func TestWorkspaceIndexAndProgress(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "functions"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "functions", "helper.fish"), []byte("function helper\nend\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := newTestClient(t, ServerOptions{})
	c.initialize(root, true)

	select {
	case <-c.srv.Indexed():
	case <-time.After(5 * time.Second):
		t.Fatal("indexing did not finish")
	}

	var kinds []string
	timeout := time.After(5 * time.Second)
	for len(kinds) == 0 || kinds[len(kinds)-1] != "end" {
		select {
		case k := <-c.progress:
			kinds = append(kinds, k)
		case <-timeout:
			t.Fatalf("progress incomplete: %v", kinds)
		}
	}
	if kinds[0] != "begin" {
		t.Fatalf("progress must start with begin: %v", kinds)
	}

	var syms []protocol.SymbolInformation
	if err := c.call("workspace/symbol", protocol.WorkspaceSymbolParams{Query: "help"}, &syms); err != nil {
		t.Fatalf("workspace/symbol: %v", err)
	}
	if len(syms) != 1 || syms[0].Name != "helper" {
		t.Fatalf("unexpected symbols %+v", syms)
	}
	if want := source.PathToURI(filepath.Join(root, "functions", "helper.fish")); string(syms[0].Location.URI) != want {
		t.Fatalf("location %s, want %s", syms[0].Location.URI, want)
	}
}

func TestUnknownRequest(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	err := c.call("textDocument/hover", struct{}{}, nil)
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Fatalf("expected method not found, got %v", err)
	}
}

func TestShutdownThenExit(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	if err := c.call("shutdown", nil, nil); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	err := c.call("workspace/symbol", protocol.WorkspaceSymbolParams{}, nil)
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != jsonrpc2.CodeInvalidRequest {
		t.Fatalf("expected invalid request after shutdown, got %v", err)
	}
	c.notify("exit", nil)
	if err := c.wait(); !errors.Is(err, ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.notify("exit", nil)
	if err := c.wait(); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
}

func TestStreamCloseEndsRun(t *testing.T) {
	c := newTestClient(t, ServerOptions{})
	c.initialize("", false)
	_ = c.conn.Close()
	if err := c.wait(); err != nil {
		t.Fatalf("expected nil on disconnect, got %v", err)
	}
}

func TestWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		params protocol.InitializeParams
		want   string
	}{
		{"root uri", protocol.InitializeParams{RootURI: protocol.DocumentURI(source.PathToURI(dir))}, dir},
		{"root path", protocol.InitializeParams{RootPath: dir}, dir},
		{"workspace folder", protocol.InitializeParams{WorkspaceFolders: []protocol.WorkspaceFolder{{URI: source.PathToURI(dir), Name: "ws"}}}, dir},
		{"none", protocol.InitializeParams{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workspaceRoot(&tt.params); got != tt.want {
				t.Fatalf("workspaceRoot() = %q, want %q", got, tt.want)
			}
		})
	}
}
