package syntax

import (
	"context"
	"sort"
)

// Parser turns fish source into a concrete syntax tree. Implementations are
// deterministic: identical text yields structurally identical trees.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// Tree owns the source bytes and the root node of one parse.
type Tree struct {
	Root   *Node
	Source []byte

	lineStarts []int
}

// NewTree binds root and every descendant to src and fills in row/column
// points from the byte offsets.
func NewTree(root *Node, src []byte) *Tree {
	t := &Tree{Root: root, Source: src, lineStarts: lineStarts(src)}
	if root == nil {
		return t
	}
	root.parent = nil
	root.Walk(func(n *Node) bool {
		n.tree = t
		n.Start = t.Point(n.StartByte)
		n.End = t.Point(n.EndByte)
		for i, c := range n.Children {
			c.parent = n
			c.index = i
		}
		return true
	})
	return t
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Point converts a byte offset into a row and byte column.
func (t *Tree) Point(offset int) Point {
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.Source) {
		offset = len(t.Source)
	}
	row := sort.Search(len(t.lineStarts), func(i int) bool { return t.lineStarts[i] > offset }) - 1
	if row < 0 {
		row = 0
	}
	return Point{Row: row, Column: offset - t.lineStarts[row]}
}

// LineCount returns the number of lines in the source, counting a trailing
// partial line.
func (t *Tree) LineCount() int {
	return len(t.lineStarts)
}

// Line returns the text of row without its line terminator.
func (t *Tree) Line(row int) string {
	if row < 0 || row >= len(t.lineStarts) {
		return ""
	}
	start := t.lineStarts[row]
	end := len(t.Source)
	if row+1 < len(t.lineStarts) {
		end = t.lineStarts[row+1] - 1
	}
	if end > start && t.Source[end-1] == '\r' {
		end--
	}
	return string(t.Source[start:end])
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	count := 0
	t.Root.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
