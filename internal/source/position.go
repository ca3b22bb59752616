package source

import (
	"fmt"

	"fishls/internal/syntax"
)

// Position is a zero-based line and column. Inside the engine the column
// counts bytes; Document converts to UTF-16 code units at the protocol edge.
type Position struct {
	Line      int `json:"line" msgpack:"l"`
	Character int `json:"character" msgpack:"c"`
}

func (p Position) Less(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

func (p Position) LessEq(q Position) bool { return p == q || p.Less(q) }

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1) }

// Range is a half-open span [Start, End).
type Range struct {
	Start Position `json:"start" msgpack:"s"`
	End   Position `json:"end" msgpack:"e"`
}

// Contains reports whether pos lies inside r, end inclusive so that a cursor
// placed right after a token still hits it.
func (r Range) Contains(pos Position) bool {
	return r.Start.LessEq(pos) && pos.LessEq(r.End)
}

// ContainsRange reports whether other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return r.Start.LessEq(other.Start) && other.End.LessEq(r.End)
}

func (r Range) Less(other Range) bool {
	if r.Start != other.Start {
		return r.Start.Less(other.Start)
	}
	return r.End.Less(other.End)
}

func (r Range) String() string { return r.Start.String() + "-" + r.End.String() }

// Location ties a range to a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// LineSpan is an inclusive range of lines.
type LineSpan struct {
	Start int
	End   int
}

// Overlaps reports whether the line range [start, end] touches s after
// widening s by pad lines on each side.
func (s LineSpan) Overlaps(start, end, pad int) bool {
	return start <= s.End+pad && end >= s.Start-pad
}

func FromPoint(p syntax.Point) Position {
	return Position{Line: p.Row, Character: p.Column}
}

// NodeRange returns the range covered by n.
func NodeRange(n *syntax.Node) Range {
	if n == nil {
		return Range{}
	}
	return Range{Start: FromPoint(n.Start), End: FromPoint(n.End)}
}

// ToPoint converts a byte-column position into a tree point.
func ToPoint(p Position) syntax.Point {
	return syntax.Point{Row: p.Line, Column: p.Character}
}
