// Package scope decides the visibility of fish definitions.
package scope

import (
	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Tag is the scope class of a definition. Tags are totally ordered:
// Global > Universal > Function > Local > Inherit.
type Tag uint8

const (
	Inherit Tag = iota
	Local
	Function
	Universal
	Global
)

var tagNames = [...]string{
	Inherit:   "inherit",
	Local:     "local",
	Function:  "function",
	Universal: "universal",
	Global:    "global",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Compare returns -1, 0 or 1 as t ranks below, equal to or above o.
func (t Tag) Compare(o Tag) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	}
	return 0
}

// Outranks reports whether t is strictly wider than o.
func (t Tag) Outranks(o Tag) bool { return t > o }

// CrossDocument reports whether definitions with this tag are visible from
// other documents.
func (t Tag) CrossDocument() bool { return t == Global || t == Universal }

// Scope pairs a tag with the syntax node bounding its visibility.
type Scope struct {
	Tag  Tag
	Node *syntax.Node
}

func (s Scope) String() string {
	if s.Node == nil {
		return s.Tag.String()
	}
	return s.Tag.String() + "@" + s.Node.Type
}

// Contains reports whether n lies inside the scope's extent. Cross-document
// scopes contain every node of their program.
func (s Scope) Contains(n *syntax.Node) bool {
	if s.Node == nil || n == nil {
		return false
	}
	return s.Node.Encloses(n)
}

// ContainsPosition reports whether pos lies inside the scope's extent.
func (s Scope) ContainsPosition(pos source.Position) bool {
	if s.Node == nil {
		return false
	}
	return source.NodeRange(s.Node).Contains(pos)
}

// Visible reports whether a symbol owned by ownerURI with this scope can be
// seen from fromURI, ignoring position.
func (s Scope) Visible(fromURI, ownerURI string) bool {
	return fromURI == ownerURI || s.Tag.CrossDocument()
}

// Nearest returns the closest strict ancestor of n that bounds local
// variables, or the root when there is none.
func Nearest(n *syntax.Node) *syntax.Node {
	if p := n.Ancestor(syntax.IsScopeNode); p != nil {
		return p
	}
	return syntax.Root(n)
}
