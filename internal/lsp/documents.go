package lsp

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"fishls/internal/analysis"
	"fishls/internal/source"
)

// didChangeParams mirrors protocol.DidChangeTextDocumentParams with an
// optional range so full-document replacements can be told apart.
type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

// canonicalURI normalizes file URIs so that one file maps to one key.
func canonicalURI(uri protocol.DocumentURI) string {
	raw := string(uri)
	if path := source.URIToPath(raw); path != "" {
		return source.PathToURI(path)
	}
	return raw
}

func (s *Server) handleDidOpen(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	doc := s.analyzer.Docs().Open(uri, params.TextDocument.Text, params.TextDocument.Version)
	if _, err := s.analyzer.AnalyzeAs(ctx, doc, analysis.TriggerOpen); err != nil {
		s.logf("didOpen %s: %v", uri, err)
	}
	s.cache.RequestUpdate(uri, true, nil)
	return nil
}

func (s *Server) handleDidChange(ctx context.Context, req *jsonrpc2.Request) error {
	var params didChangeParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	changes := make([]source.Change, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		change := source.Change{Text: c.Text}
		if c.Range != nil {
			r := fromProtocolRange(*c.Range)
			change.Range = &r
		}
		changes = append(changes, change)
	}
	doc, span, full, ok := s.analyzer.Docs().Change(uri, params.TextDocument.Version, changes)
	if !ok {
		s.logf("didChange for unopened document %s", uri)
		return nil
	}
	// symbols and the index follow every edit, whether or not diagnostics run
	s.reanalyze(ctx, doc)
	if full {
		s.cache.RequestUpdate(uri, false, nil)
		return nil
	}
	s.cache.RequestUpdate(uri, false, &span)
	return nil
}

func (s *Server) handleDidSave(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	doc, ok := s.analyzer.Docs().Get(uri)
	if !ok {
		return nil
	}
	if params.Text != "" && params.Text != doc.Text {
		if doc, _, _, ok = s.analyzer.Docs().Change(uri, doc.Version, []source.Change{{Text: params.Text}}); ok {
			s.reanalyze(ctx, doc)
		}
	}
	s.cache.RequestUpdate(uri, true, nil)
	return nil
}

func (s *Server) handleDidClose(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.analyzer.Close(ctx, uri)
	s.cache.Delete(uri)
	return nil
}

func (s *Server) reanalyze(ctx context.Context, doc *source.Document) {
	if _, err := s.analyzer.AnalyzeAs(ctx, doc, analysis.TriggerChange); err != nil {
		s.logf("analyze %s: %v", doc.URI, err)
	}
}
