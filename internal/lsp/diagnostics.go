package lsp

import (
	"fortio.org/safecast"
	"go.lsp.dev/protocol"

	"fishls/internal/diag"
)

// publish sends diags for uri. The cache guarantees calls for one URI are
// serialized and in request order.
func (s *Server) publish(uri string, diags []diag.Diagnostic) {
	doc := s.document(uri)
	params := &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: make([]protocol.Diagnostic, 0, len(diags)),
	}
	if doc != nil {
		if v, err := safecast.Conv[uint32](doc.Version); err == nil {
			params.Version = v
		}
	}
	for _, d := range diags {
		params.Diagnostics = append(params.Diagnostics, toDiagnostic(doc, d))
	}
	s.notify("textDocument/publishDiagnostics", params)
}

// republishAll schedules fresh diagnostics for every open document.
func (s *Server) republishAll(immediate bool) {
	for _, uri := range s.analyzer.Docs().URIs() {
		s.cache.RequestUpdate(uri, immediate, nil)
	}
}
