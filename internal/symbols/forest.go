package symbols

import (
	"fmt"

	"fortio.org/safecast"
)

// Forest is the arena of symbols extracted from one document. Index 0 is
// reserved for NoSymbolID.
type Forest struct {
	URI   string
	data  []Symbol
	roots []SymbolID
}

// NewForest creates an arena with optional capacity hint.
func NewForest(uri string, capacity uint32) *Forest {
	if capacity == 0 {
		capacity = 64
	}
	return &Forest{
		URI:  uri,
		data: make([]Symbol, 1, capacity+1),
	}
}

// New allocates a symbol in the arena and returns its ID. Pointers returned
// by Get before a call to New may be invalidated by it.
func (f *Forest) New(sym *Symbol) SymbolID {
	if sym == nil {
		panic("symbols.New: nil symbol")
	}
	value, err := safecast.Conv[uint32](len(f.data))
	if err != nil {
		panic(fmt.Errorf("symbols arena overflow: %w", err))
	}
	id := SymbolID(value)
	sym.ID = id
	f.data = append(f.data, *sym)
	return id
}

// Get returns a symbol pointer or nil for invalid ID.
func (f *Forest) Get(id SymbolID) *Symbol {
	if f == nil || !id.IsValid() || int(id) >= len(f.data) {
		return nil
	}
	return &f.data[id]
}

// Len reports number of stored symbols excluding sentinel.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.data) - 1
}

// All returns every symbol in allocation order.
func (f *Forest) All() []*Symbol {
	out := make([]*Symbol, 0, f.Len())
	for i := 1; i < len(f.data); i++ {
		out = append(out, &f.data[i])
	}
	return out
}

func (f *Forest) Roots() []*Symbol {
	return f.resolve(f.roots)
}

func (f *Forest) Children(s *Symbol) []*Symbol {
	if s == nil {
		return nil
	}
	return f.resolve(s.Children)
}

// Parent returns the symbol enclosing s, or nil for roots.
func (f *Forest) Parent(s *Symbol) *Symbol {
	if s == nil {
		return nil
	}
	return f.Get(s.Parent)
}

func (f *Forest) resolve(ids []SymbolID) []*Symbol {
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		if s := f.Get(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Flat returns every symbol reachable from the roots in pre-order.
func (f *Forest) Flat() []*Symbol {
	out := make([]*Symbol, 0, f.Len())
	var visit func(ids []SymbolID)
	visit = func(ids []SymbolID) {
		for _, id := range ids {
			s := f.Get(id)
			if s == nil {
				continue
			}
			out = append(out, s)
			visit(s.Children)
		}
	}
	visit(f.roots)
	return out
}

// Globals returns the symbols visible from other documents.
func (f *Forest) Globals() []*Symbol {
	var out []*Symbol
	for _, s := range f.Flat() {
		if s.Scope.Tag.CrossDocument() {
			out = append(out, s)
		}
	}
	return out
}

// Named returns every symbol called name in pre-order.
func (f *Forest) Named(name string) []*Symbol {
	var out []*Symbol
	for _, s := range f.Flat() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Container returns the name of the nearest enclosing function symbol.
func (f *Forest) Container(s *Symbol) string {
	for p := f.Parent(s); p != nil; p = f.Parent(p) {
		if p.IsFunction() {
			return p.Name
		}
	}
	return ""
}

// WorkspaceSymbol converts s into its flat form.
func (f *Forest) WorkspaceSymbol(s *Symbol) WorkspaceSymbol {
	return WorkspaceSymbol{
		Name:      s.Name,
		Kind:      s.Kind,
		Location:  s.Location(),
		Container: f.Container(s),
	}
}

// DocumentSymbols builds the outline tree, omitting synthetic symbols.
func (f *Forest) DocumentSymbols() []DocumentSymbol {
	var build func(ids []SymbolID) []DocumentSymbol
	build = func(ids []SymbolID) []DocumentSymbol {
		var out []DocumentSymbol
		for _, id := range ids {
			s := f.Get(id)
			if s == nil || s.IsSynthetic() {
				continue
			}
			out = append(out, DocumentSymbol{
				Name:           s.Name,
				Detail:         s.Detail,
				Kind:           s.Kind,
				Range:          s.DefinitionRange,
				SelectionRange: s.SelectionRange,
				Children:       build(s.Children),
			})
		}
		return out
	}
	return build(f.roots)
}
