package lsp

import (
	"context"
	"errors"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"fishls/internal/analysis"
	"fishls/internal/config"
	"fishls/internal/source"
)

// position converts a wire position in uri to a byte position.
func (s *Server) position(ctx context.Context, uri string, p protocol.Position) (source.Position, error) {
	res, err := s.analyzer.Current(ctx, uri)
	if err != nil {
		return source.Position{}, err
	}
	return res.Doc.FromUTF16(fromProtocolPosition(p)), nil
}

// lookupErr maps unknown documents to an empty result.
func lookupErr(err error) error {
	if errors.Is(err, analysis.ErrNoDocument) {
		return nil
	}
	return err
}

func (s *Server) handleDefinition(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	if !s.enabled(config.HandlerDefinition) {
		return nil, nil
	}
	var params protocol.DefinitionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	uri := canonicalURI(params.TextDocument.URI)
	pos, err := s.position(ctx, uri, params.Position)
	if err != nil {
		return []protocol.Location{}, lookupErr(err)
	}
	locs, err := s.analyzer.Definitions(ctx, uri, pos)
	if err != nil {
		return nil, err
	}
	return s.toLocations(locs), nil
}

func (s *Server) handleReferences(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	if !s.enabled(config.HandlerReferences) {
		return nil, nil
	}
	var params protocol.ReferenceParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	uri := canonicalURI(params.TextDocument.URI)
	pos, err := s.position(ctx, uri, params.Position)
	if err != nil {
		return []protocol.Location{}, lookupErr(err)
	}
	locs, err := s.analyzer.References(ctx, uri, pos)
	if err != nil {
		return nil, err
	}
	if !params.Context.IncludeDeclaration && len(locs) > 0 {
		defs, err := s.analyzer.Definitions(ctx, uri, pos)
		if err != nil {
			return nil, err
		}
		kept := locs[:0]
		for _, loc := range locs {
			if !containsLocation(defs, loc) {
				kept = append(kept, loc)
			}
		}
		locs = kept
	}
	return s.toLocations(locs), nil
}

func containsLocation(list []source.Location, loc source.Location) bool {
	for _, l := range list {
		if l == loc {
			return true
		}
	}
	return false
}

func (s *Server) handleDocumentSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	if !s.enabled(config.HandlerDocumentSymbol) {
		return nil, nil
	}
	var params protocol.DocumentSymbolParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	uri := canonicalURI(params.TextDocument.URI)
	res, err := s.analyzer.Current(ctx, uri)
	if err != nil {
		return []protocol.DocumentSymbol{}, lookupErr(err)
	}
	return toDocumentSymbols(res.Doc, res.Forest.DocumentSymbols()), nil
}

func (s *Server) handleWorkspaceSymbol(req *jsonrpc2.Request) (any, error) {
	if !s.enabled(config.HandlerWorkspaceSymbol) {
		return nil, nil
	}
	var params protocol.WorkspaceSymbolParams
	if req.Params != nil {
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
	}
	found := s.analyzer.WorkspaceSymbols(params.Query)
	out := make([]protocol.SymbolInformation, 0, len(found))
	for _, sym := range found {
		out = append(out, protocol.SymbolInformation{
			Name:          sym.Name,
			Kind:          toSymbolKind(sym.Kind),
			Location:      s.toLocation(sym.Location),
			ContainerName: sym.Container,
		})
	}
	return out, nil
}
