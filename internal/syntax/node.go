package syntax

import (
	"strings"
)

// Point is a zero-based row and byte column inside a document.
type Point struct {
	Row    int
	Column int
}

// Less reports whether p comes strictly before q.
func (p Point) Less(q Point) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Column < q.Column
}

// LessEq reports whether p comes before q or equals it.
func (p Point) LessEq(q Point) bool {
	return p == q || p.Less(q)
}

// ErrorType is the node type used for unparseable regions.
const ErrorType = "ERROR"

// Node is one element of a concrete syntax tree. Node types follow the
// tree-sitter-fish grammar so trees produced by the built-in parser and by
// the tree-sitter adapter are interchangeable.
type Node struct {
	Type      string
	Field     string
	StartByte int
	EndByte   int
	Start     Point
	End       Point
	Children  []*Node

	named  bool
	parent *Node
	index  int
	tree   *Tree
}

// NewNode allocates a detached node. Callers attach it with AppendChild.
func NewNode(typ string, named bool, startByte, endByte int) *Node {
	return &Node{Type: typ, named: named, StartByte: startByte, EndByte: endByte}
}

// AppendChild attaches child as the last child of n under the given field name.
func (n *Node) AppendChild(child *Node, field string) {
	if child == nil {
		return
	}
	child.parent = n
	child.index = len(n.Children)
	child.Field = field
	child.tree = n.tree
	n.Children = append(n.Children, child)
}

func (n *Node) IsNamed() bool { return n != nil && n.named }

func (n *Node) IsError() bool { return n != nil && n.Type == ErrorType }

// HasError reports whether n or any descendant is an ERROR node.
func (n *Node) HasError() bool {
	if n == nil {
		return false
	}
	found := false
	n.Walk(func(c *Node) bool {
		if c.IsError() {
			found = true
		}
		return !found
	})
	return found
}

func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Tree() *Tree {
	if n == nil {
		return nil
	}
	return n.tree
}

// Text returns the source text covered by n.
func (n *Node) Text() string {
	if n == nil || n.tree == nil {
		return ""
	}
	src := n.tree.Source
	if n.StartByte < 0 || n.EndByte > len(src) || n.StartByte > n.EndByte {
		return ""
	}
	return string(src[n.StartByte:n.EndByte])
}

func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

func (n *Node) FirstChild() *Node { return n.Child(0) }

func (n *Node) LastChild() *Node {
	if n == nil {
		return nil
	}
	return n.Child(len(n.Children) - 1)
}

// NamedChildren returns the named children of n in order.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) FirstNamedChild() *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.named {
			return c
		}
	}
	return nil
}

// ChildByField returns the first child recorded under field.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenByField returns all children recorded under field.
func (n *Node) ChildrenByField(field string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) PrevSibling() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index - 1)
}

func (n *Node) NextSibling() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent.Child(n.index + 1)
}

func (n *Node) PrevNamedSibling() *Node {
	for s := n.PrevSibling(); s != nil; s = s.PrevSibling() {
		if s.named {
			return s
		}
	}
	return nil
}

func (n *Node) NextNamedSibling() *Node {
	for s := n.NextSibling(); s != nil; s = s.NextSibling() {
		if s.named {
			return s
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// Ancestor returns the nearest strict ancestor accepted by match.
func (n *Node) Ancestor(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	for p := n.parent; p != nil; p = p.parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// Contains reports whether p lies within [Start, End].
func (n *Node) Contains(p Point) bool {
	return n != nil && n.Start.LessEq(p) && p.LessEq(n.End)
}

// Encloses reports whether other lies entirely within n.
func (n *Node) Encloses(other *Node) bool {
	if n == nil || other == nil {
		return false
	}
	return n.StartByte <= other.StartByte && other.EndByte <= n.EndByte
}

// DescendantAt returns the deepest named node whose extent contains p.
func (n *Node) DescendantAt(p Point) *Node {
	if !n.Contains(p) {
		return nil
	}
	cur := n
	for {
		var next *Node
		for _, c := range cur.Children {
			if c.named && c.Contains(p) {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// String renders n as an S-expression of named nodes with field labels.
func (n *Node) String() string {
	var sb strings.Builder
	n.writeSexp(&sb)
	return sb.String()
}

func (n *Node) writeSexp(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("()")
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.Type)
	for _, c := range n.Children {
		if !c.named {
			continue
		}
		sb.WriteByte(' ')
		if c.Field != "" {
			sb.WriteString(c.Field)
			sb.WriteString(": ")
		}
		c.writeSexp(sb)
	}
	sb.WriteByte(')')
}
