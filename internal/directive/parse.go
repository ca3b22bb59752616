// Package directive interprets inline "# @fish-lsp-disable" comments and
// answers whether a diagnostic code is enabled on a given line.
package directive

import (
	"regexp"
	"strings"

	"fishls/internal/diag"
	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Action is what a directive does to its codes.
type Action uint8

const (
	Disable Action = iota
	Enable
)

func (a Action) String() string {
	if a == Enable {
		return "enable"
	}
	return "disable"
}

// InvalidCode is a number in a directive that is not a registered code.
type InvalidCode struct {
	Text  string
	Range source.Range
}

// Directive is one parsed control comment.
type Directive struct {
	Action   Action
	NextLine bool
	Codes    []diag.Code
	Invalid  []InvalidCode
	Line     int
	Node     *syntax.Node
}

var pattern = regexp.MustCompile(`^#\s*@fish-lsp-(disable|enable)(?:-(next-line))?\s*([0-9\s]*)?$`)

// ParseComment recognizes a directive in a comment node.
func ParseComment(n *syntax.Node) (Directive, bool) {
	if !syntax.IsComment(n) {
		return Directive{}, false
	}
	text := strings.TrimRight(n.Text(), " \t\r")
	m := pattern.FindStringSubmatchIndex(text)
	if m == nil {
		return Directive{}, false
	}
	d := Directive{
		Action:   Disable,
		NextLine: m[4] >= 0,
		Line:     n.Start.Row,
		Node:     n,
	}
	if text[m[2]:m[3]] == "enable" {
		d.Action = Enable
	}
	if m[6] < 0 {
		return d, true
	}
	codes := text[m[6]:m[7]]
	offset := m[6]
	for len(codes) > 0 {
		trimmed := strings.TrimLeft(codes, " \t")
		offset += len(codes) - len(trimmed)
		codes = trimmed
		if codes == "" {
			break
		}
		end := strings.IndexAny(codes, " \t")
		if end < 0 {
			end = len(codes)
		}
		token := codes[:end]
		if code, ok := diag.ParseCode(token); ok {
			d.Codes = append(d.Codes, code)
		} else {
			start := source.Position{Line: n.Start.Row, Character: n.Start.Column + offset}
			d.Invalid = append(d.Invalid, InvalidCode{
				Text:  token,
				Range: source.Range{Start: start, End: source.Position{Line: start.Line, Character: start.Character + len(token)}},
			})
		}
		offset += end
		codes = codes[end:]
	}
	return d, true
}
