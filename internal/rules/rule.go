// Package rules implements the diagnostic rule engine: an ordered table of
// per-node checks evaluated in a single cancellable walk of a fish tree.
package rules

import (
	"os"

	"fishls/internal/diag"
	"fishls/internal/directive"
	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
)

// Kind selects when a rule is evaluated.
type Kind uint8

const (
	// KindNode rules run for every node whose type is listed in Types.
	KindNode Kind = iota
	// KindDocument rules run once per document, against the program root.
	KindDocument
)

func (k Kind) String() string {
	if k == KindDocument {
		return "document"
	}
	return "node"
}

// Finding is one rule match. Range overrides the node's range when set.
type Finding struct {
	Node   *syntax.Node
	Range  *source.Range
	Detail string
}

func at(n *syntax.Node, detail string) Finding {
	return Finding{Node: n, Detail: detail}
}

// Rule pairs a diagnostic code with the check that produces it.
type Rule struct {
	Kind  Kind
	Code  diag.Code
	Types []string
	Check func(c *Context, n *syntax.Node) []Finding
}

// Context is the read-only state shared by all checks of one run.
type Context struct {
	Doc        *source.Document
	Root       *syntax.Node
	Autoload   source.Autoload
	Forest     *symbols.Forest
	Index      *symbols.Index
	Directives directive.Result
	Options    Options
	FileExists func(path string) bool

	terminates map[*syntax.Node]bool
}

// Options are the configuration toggles consulted by individual rules.
type Options struct {
	// StrictConditional enables the missing quiet option check (3002).
	StrictConditional bool
	// MaxDiagnostics truncates the sorted output; 0 means unlimited.
	MaxDiagnostics int
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{StrictConditional: true}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
