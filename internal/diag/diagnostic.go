package diag

import (
	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Diagnostic is a single finding. Node points at the offending syntax node
// and is never serialized.
type Diagnostic struct {
	Code     Code         `json:"code" msgpack:"code"`
	Severity Severity     `json:"severity" msgpack:"sev"`
	Range    source.Range `json:"range" msgpack:"range"`
	Message  string       `json:"message" msgpack:"msg"`
	Source   string       `json:"source" msgpack:"src"`
	Node     *syntax.Node `json:"-" msgpack:"-"`
}

// Message joins the base message of code with an optional detail.
func Message(code Code, detail string) string {
	if detail == "" {
		return code.Title()
	}
	return code.Title() + " | " + detail
}

// New builds a diagnostic for code located at node.
func New(code Code, node *syntax.Node, detail string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: code.Severity(),
		Range:    source.NodeRange(node),
		Message:  Message(code, detail),
		Source:   Source,
		Node:     node,
	}
}

// NewAt builds a diagnostic for code covering rng.
func NewAt(code Code, rng source.Range, detail string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: code.Severity(),
		Range:    rng,
		Message:  Message(code, detail),
		Source:   Source,
	}
}

// Line returns the zero-based start line.
func (d Diagnostic) Line() int { return d.Range.Start.Line }

// Less orders diagnostics by range, then code.
func (d Diagnostic) Less(other Diagnostic) bool {
	if d.Range != other.Range {
		return d.Range.Less(other.Range)
	}
	return d.Code < other.Code
}
