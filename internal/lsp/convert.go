package lsp

import (
	"fortio.org/safecast"
	"go.lsp.dev/protocol"

	"fishls/internal/diag"
	"fishls/internal/source"
	"fishls/internal/symbols"
)

// Positions inside the server use byte columns; the wire uses UTF-16 code
// units. Conversions need the document text, so every outgoing range goes
// through the document it belongs to.

func toProtocolPosition(p source.Position) protocol.Position {
	line, _ := safecast.Conv[uint32](max(p.Line, 0))
	char, _ := safecast.Conv[uint32](max(p.Character, 0))
	return protocol.Position{Line: line, Character: char}
}

func fromProtocolPosition(p protocol.Position) source.Position {
	return source.Position{Line: int(p.Line), Character: int(p.Character)}
}

func fromProtocolRange(r protocol.Range) source.Range {
	return source.Range{Start: fromProtocolPosition(r.Start), End: fromProtocolPosition(r.End)}
}

// wireRange converts a byte-column range of doc; a nil doc passes columns
// through unchanged.
func wireRange(doc *source.Document, r source.Range) protocol.Range {
	if doc != nil {
		r = doc.RangeToUTF16(r)
	}
	return protocol.Range{Start: toProtocolPosition(r.Start), End: toProtocolPosition(r.End)}
}

// document returns the newest text known for uri: the open buffer, then the
// last analysis.
func (s *Server) document(uri string) *source.Document {
	if doc, ok := s.analyzer.Docs().Get(uri); ok {
		return doc
	}
	if res, ok := s.analyzer.Result(uri); ok {
		return res.Doc
	}
	return nil
}

func (s *Server) toLocation(loc source.Location) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentURI(loc.URI),
		Range: wireRange(s.document(loc.URI), loc.Range),
	}
}

func (s *Server) toLocations(locs []source.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, s.toLocation(loc))
	}
	return out
}

func toSymbolKind(k symbols.Kind) protocol.SymbolKind {
	if k == symbols.KindFunction {
		return protocol.SymbolKindFunction
	}
	return protocol.SymbolKindVariable
}

func toDocumentSymbols(doc *source.Document, list []symbols.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(list))
	for _, sym := range list {
		out = append(out, protocol.DocumentSymbol{
			Name:           sym.Name,
			Detail:         sym.Detail,
			Kind:           toSymbolKind(sym.Kind),
			Range:          wireRange(doc, sym.Range),
			SelectionRange: wireRange(doc, sym.SelectionRange),
			Children:       toDocumentSymbols(doc, sym.Children),
		})
	}
	return out
}

func toSeverity(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.SevError:
		return protocol.DiagnosticSeverityError
	case diag.SevWarning:
		return protocol.DiagnosticSeverityWarning
	case diag.SevInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func toDiagnostic(doc *source.Document, d diag.Diagnostic) protocol.Diagnostic {
	out := protocol.Diagnostic{
		Range:    wireRange(doc, d.Range),
		Severity: toSeverity(d.Severity),
		Code:     int(d.Code),
		Source:   d.Source,
		Message:  d.Message,
	}
	if href := d.Code.Href(); href != "" {
		out.CodeDescription = &protocol.CodeDescription{Href: protocol.URI(href)}
	}
	return out
}
