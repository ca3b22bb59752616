package symbols

import (
	"sort"
	"strings"
	"sync"
)

// Index maps names to the cross-document symbols of every analyzed
// document. A document's contribution is always replaced as a unit.
type Index struct {
	mu      sync.RWMutex
	byName  map[string][]*Symbol
	byURI   map[string][]*Symbol
	forests map[string]*Forest
}

func NewIndex() *Index {
	return &Index{
		byName:  make(map[string][]*Symbol),
		byURI:   make(map[string][]*Symbol),
		forests: make(map[string]*Forest),
	}
}

// Replace drops uri's previous contribution and registers the global and
// universal symbols of forest.
func (idx *Index) Replace(uri string, forest *Forest) {
	globals := forest.Globals()
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(uri)
	idx.forests[uri] = forest
	if len(globals) == 0 {
		return
	}
	idx.byURI[uri] = globals
	for _, s := range globals {
		idx.byName[s.Name] = append(idx.byName[s.Name], s)
	}
}

// Remove drops every symbol contributed by uri.
func (idx *Index) Remove(uri string) {
	idx.mu.Lock()
	idx.removeLocked(uri)
	idx.mu.Unlock()
}

func (idx *Index) removeLocked(uri string) {
	delete(idx.forests, uri)
	prev := idx.byURI[uri]
	if len(prev) == 0 {
		return
	}
	delete(idx.byURI, uri)
	touched := make(map[string]struct{}, len(prev))
	for _, s := range prev {
		touched[s.Name] = struct{}{}
	}
	for name := range touched {
		kept := idx.byName[name][:0]
		for _, s := range idx.byName[name] {
			if s.URI != uri {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(idx.byName, name)
		} else {
			idx.byName[name] = kept
		}
	}
}

// Find returns every indexed symbol called name in insertion order.
func (idx *Index) Find(name string) []*Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*Symbol(nil), idx.byName[name]...)
}

// FindFunction returns the first indexed function called name.
func (idx *Index) FindFunction(name string) *Symbol {
	for _, s := range idx.Find(name) {
		if s.IsFunction() {
			return s
		}
	}
	return nil
}

// Query returns the symbols whose name starts with prefix, ordered by name.
// An empty prefix returns everything.
func (idx *Index) Query(prefix string) []WorkspaceSymbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var out []WorkspaceSymbol
	for _, name := range names {
		for _, s := range idx.byName[name] {
			out = append(out, idx.forests[s.URI].WorkspaceSymbol(s))
		}
	}
	return out
}

// Forest returns the last forest registered for uri.
func (idx *Index) Forest(uri string) (*Forest, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	f, ok := idx.forests[uri]
	return f, ok
}

// Contributions returns the symbols uri currently contributes.
func (idx *Index) Contributions(uri string) []*Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*Symbol(nil), idx.byURI[uri]...)
}

// Len returns the number of indexed symbols.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for _, list := range idx.byName {
		n += len(list)
	}
	return n
}

// Names returns the indexed names in sorted order.
func (idx *Index) Names() []string {
	idx.mu.RLock()
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	idx.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Documents returns the URIs with a registered forest.
func (idx *Index) Documents() []string {
	idx.mu.RLock()
	out := make([]string, 0, len(idx.forests))
	for uri := range idx.forests {
		out = append(out, uri)
	}
	idx.mu.RUnlock()
	sort.Strings(out)
	return out
}
