package analysis

import (
	"context"
	"sort"
	"strings"

	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
)

// nameAt returns the identifier written at n, its range and the kind of
// symbol it can refer to. Bare words name functions; variable names name
// variables. Options and quoted strings yield "".
func nameAt(n *syntax.Node) (string, source.Range, symbols.Kind) {
	switch {
	case n == nil:
		return "", source.Range{}, 0
	case n.Type == "variable_expansion":
		return nameAt(n.FirstNamedChild())
	case n.Type == "variable_name":
		return n.Text(), source.NodeRange(n), symbols.KindVariable
	case n.Type == "word":
		text := n.Text()
		if text == "" || strings.HasPrefix(text, "-") {
			return "", source.Range{}, 0
		}
		if i := strings.IndexByte(text, '['); i > 0 {
			text = text[:i]
		}
		rng := source.NodeRange(n)
		if rng.Start.Line == rng.End.Line {
			rng.End.Character = rng.Start.Character + len(text)
		}
		return text, rng, symbols.KindFunction
	}
	return "", source.Range{}, 0
}

// resolve finds the symbols a name written at pos in res refers to:
// an exact definition hit, otherwise the local definitions in scope
// innermost first, otherwise the workspace index.
func (a *Analyzer) resolve(res *Result, pos source.Position, name string, kind symbols.Kind) []*symbols.Symbol {
	for _, s := range res.Flat {
		if !s.IsSynthetic() && s.SelectionRange.Contains(pos) && s.Name == name {
			return []*symbols.Symbol{s}
		}
	}
	if name == "" {
		return nil
	}

	var local []*symbols.Symbol
	for _, s := range res.Flat {
		if s.Name != name || s.Kind != kind || !s.Scope.ContainsPosition(pos) {
			continue
		}
		if s.IsVariable() && !s.IsSynthetic() && pos.Less(s.SelectionRange.Start) {
			continue
		}
		local = append(local, s)
	}
	if len(local) > 0 {
		sort.SliceStable(local, func(i, j int) bool {
			wi := scopeWidth(local[i])
			wj := scopeWidth(local[j])
			if wi != wj {
				return wi < wj
			}
			// nearest preceding definition first
			return local[j].SelectionRange.Start.Less(local[i].SelectionRange.Start)
		})
		return local
	}

	var out []*symbols.Symbol
	for _, s := range a.index.Find(name) {
		if s.Kind == kind && s.Scope.Visible(res.Doc.URI, s.URI) {
			out = append(out, s)
		}
	}
	return out
}

func scopeWidth(s *symbols.Symbol) int {
	if s.Scope.Node == nil {
		return int(^uint(0) >> 1)
	}
	return s.Scope.Node.EndByte - s.Scope.Node.StartByte
}

// DefinitionSymbols resolves the identifier under pos in uri. pos uses byte
// columns.
func (a *Analyzer) DefinitionSymbols(ctx context.Context, uri string, pos source.Position) ([]*symbols.Symbol, error) {
	res, err := a.Current(ctx, uri)
	if err != nil {
		return nil, err
	}
	node := res.Tree.Root.DescendantAt(source.ToPoint(pos))
	name, _, kind := nameAt(node)
	if name == "" {
		// argparse specs and other definition tokens that are not plain names
		for _, s := range res.Flat {
			if !s.IsSynthetic() && s.SelectionRange.Contains(pos) {
				return []*symbols.Symbol{s}, nil
			}
		}
		return nil, nil
	}
	return a.resolve(res, pos, name, kind), nil
}

// Definitions returns the locations of DefinitionSymbols.
func (a *Analyzer) Definitions(ctx context.Context, uri string, pos source.Position) ([]source.Location, error) {
	syms, err := a.DefinitionSymbols(ctx, uri, pos)
	if err != nil {
		return nil, err
	}
	out := make([]source.Location, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Location())
	}
	return out, nil
}

// References returns every location resolving to the symbol under pos,
// including its definition, ordered by URI and position.
func (a *Analyzer) References(ctx context.Context, uri string, pos source.Position) ([]source.Location, error) {
	syms, err := a.DefinitionSymbols(ctx, uri, pos)
	if err != nil || len(syms) == 0 {
		return nil, err
	}
	target := syms[0]

	candidates := []*Result{}
	if target.Scope.Tag.CrossDocument() {
		a.mu.RLock()
		for _, res := range a.results {
			candidates = append(candidates, res)
		}
		a.mu.RUnlock()
	} else if res, ok := a.Result(target.URI); ok {
		candidates = append(candidates, res)
	}

	seen := make(map[source.Location]bool)
	var out []source.Location
	add := func(loc source.Location) {
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	add(target.Location())
	for _, res := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Tree.Root.Walk(func(n *syntax.Node) bool {
			name, rng, kind := nameAt(n)
			if name != target.Name {
				return true
			}
			for _, s := range a.resolve(res, rng.Start, name, kind) {
				if s.URI == target.URI && s.ID == target.ID {
					add(source.Location{URI: res.Doc.URI, Range: rng})
					break
				}
			}
			return n.Type != "variable_expansion"
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Range.Less(out[j].Range)
	})
	return out, nil
}

// WorkspaceSymbols queries the index by name prefix.
func (a *Analyzer) WorkspaceSymbols(query string) []symbols.WorkspaceSymbol {
	return a.index.Query(query)
}

// DocumentSymbols returns the outline of uri.
func (a *Analyzer) DocumentSymbols(ctx context.Context, uri string) ([]symbols.DocumentSymbol, error) {
	res, err := a.Current(ctx, uri)
	if err != nil {
		return nil, err
	}
	return res.Forest.DocumentSymbols(), nil
}
