package symbols

import (
	"fmt"
	"strings"

	"fishls/internal/scope"
	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Kind separates functions from variables.
type Kind uint8

const (
	KindVariable Kind = iota
	KindFunction
)

func (k Kind) String() string {
	if k == KindFunction {
		return "function"
	}
	return "variable"
}

// DefKind records which construct produced a symbol.
type DefKind uint8

const (
	DefFunction DefKind = iota
	DefFunctionArgument
	DefInheritVariable
	DefEventVariable
	DefArgv
	DefSet
	DefRead
	DefFor
	DefArgparse
	DefAlias
)

var defKindNames = [...]string{
	DefFunction:         "function",
	DefFunctionArgument: "function-argument",
	DefInheritVariable:  "inherit-variable",
	DefEventVariable:    "on-variable",
	DefArgv:             "argv",
	DefSet:              "set",
	DefRead:             "read",
	DefFor:              "for",
	DefArgparse:         "argparse",
	DefAlias:            "alias",
}

func (d DefKind) String() string {
	if int(d) < len(defKindNames) {
		return defKindNames[d]
	}
	return "unknown"
}

// Symbol is a named definition. Parent and Children are arena indices into
// the owning Forest; Parent is a non-owning back-reference.
type Symbol struct {
	ID              SymbolID
	Name            string
	Kind            Kind
	Def             DefKind
	URI             string
	DefinitionRange source.Range
	SelectionRange  source.Range
	Scope           scope.Scope
	Node            *syntax.Node
	NameNode        *syntax.Node
	Detail          string
	Parent          SymbolID
	Children        []SymbolID
}

func (s *Symbol) IsFunction() bool { return s.Kind == KindFunction }

func (s *Symbol) IsVariable() bool { return s.Kind == KindVariable }

// IsSynthetic reports whether the symbol has no explicit definition token,
// like the implicit argv of functions and scripts.
func (s *Symbol) IsSynthetic() bool { return s.Def == DefArgv }

// Location is where the symbol's name is written.
func (s *Symbol) Location() source.Location {
	return source.Location{URI: s.URI, Range: s.SelectionRange}
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s (%s, %s) %s", s.Kind, s.Name, s.Def, s.Scope, s.SelectionRange)
}

// WorkspaceSymbol is the flat, cross-document view of a symbol.
type WorkspaceSymbol struct {
	Name      string          `json:"name"`
	Kind      Kind            `json:"kind"`
	Location  source.Location `json:"location"`
	Container string          `json:"container,omitempty"`
}

// DocumentSymbol is the nested outline view of a symbol.
type DocumentSymbol struct {
	Name           string
	Detail         string
	Kind           Kind
	Range          source.Range
	SelectionRange source.Range
	Children       []DocumentSymbol
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
