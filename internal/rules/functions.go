package rules

import (
	"fmt"
	"sort"
	"strings"

	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
)

// reservedFunctionNames are names fish refuses to define as functions.
var reservedFunctionNames = map[string]bool{
	"[": true, "_": true, "and": true, "argparse": true, "begin": true,
	"break": true, "builtin": true, "case": true, "command": true,
	"continue": true, "else": true, "end": true, "eval": true, "exec": true,
	"for": true, "function": true, "if": true, "not": true, "or": true,
	"read": true, "return": true, "set": true, "status": true, "string": true,
	"switch": true, "test": true, "time": true, "while": true,
}

// topLevelFunctions returns the function definitions not nested in another
// function.
func topLevelFunctions(root *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if syntax.IsFunctionDefinition(n) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

func firstLineRange(doc *source.Document) *source.Range {
	return &source.Range{End: source.Position{Character: len(doc.Line(0))}}
}

func checkAutoloadMissingDefinition(c *Context, root *syntax.Node) []Finding {
	if c.Autoload.Kind != source.AutoloadFunctions || len(topLevelFunctions(root)) > 0 {
		return nil
	}
	return []Finding{{Node: root, Range: firstLineRange(c.Doc), Detail: fmt.Sprintf("expected 'function %s'", c.Autoload.Name)}}
}

func checkAutoloadFilenameMismatch(c *Context, root *syntax.Node) []Finding {
	if c.Autoload.Kind != source.AutoloadFunctions {
		return nil
	}
	fns := topLevelFunctions(root)
	for _, fn := range fns {
		if syntax.FunctionName(fn) == c.Autoload.Name {
			return nil
		}
	}
	out := make([]Finding, 0, len(fns))
	for _, fn := range fns {
		if name := fn.ChildByField("name"); name != nil {
			out = append(out, at(name, fmt.Sprintf("expected '%s'", c.Autoload.Name)))
		}
	}
	return out
}

func checkReservedFunctionName(_ *Context, fn *syntax.Node) []Finding {
	name := fn.ChildByField("name")
	if name == nil || !reservedFunctionNames[name.Text()] {
		return nil
	}
	return []Finding{at(name, fmt.Sprintf("'%s' is reserved", name.Text()))}
}

// handlesEvents reports whether fish calls the function implicitly.
func handlesEvents(fn *syntax.Node) bool {
	for _, opt := range fn.ChildrenByField("option") {
		text := opt.Text()
		if strings.HasPrefix(text, "--on-") {
			return true
		}
		if len(text) == 2 && text[0] == '-' && strings.IndexByte("evjps", text[1]) >= 0 {
			return true
		}
	}
	return false
}

// wordUses counts the literal words of the document, excluding function
// definition names. Any literal mention of a function keeps it alive.
func wordUses(root *syntax.Node) map[string]int {
	uses := make(map[string]int)
	root.Walk(func(n *syntax.Node) bool {
		switch n.Type {
		case "word":
			if n.Field == "name" && syntax.IsFunctionDefinition(n.Parent()) {
				return true
			}
			uses[n.Text()]++
		case "single_quote_string", "double_quote_string":
			for _, w := range strings.FieldsFunc(syntax.Unquote(n.Text()), isWordBreak) {
				uses[w]++
			}
		}
		return true
	})
	return uses
}

// isWordBreak splits quoted command text such as '(helper; other)' into the
// words a shell would run.
func isWordBreak(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '(', ')', ';', '|', '&':
		return true
	}
	return false
}

func checkUnusedLocalFunctions(c *Context, root *syntax.Node) []Finding {
	if c.Forest == nil {
		return nil
	}
	var locals []*symbols.Symbol
	for _, s := range c.Forest.Flat() {
		if s.Def == symbols.DefFunction && !s.Scope.Tag.CrossDocument() && !handlesEvents(s.Node) {
			locals = append(locals, s)
		}
	}
	if len(locals) == 0 {
		return nil
	}
	uses := wordUses(root)
	var out []Finding
	for _, s := range locals {
		if uses[s.Name] > 0 {
			continue
		}
		rng := s.SelectionRange
		out = append(out, Finding{Node: s.NameNode, Range: &rng, Detail: shadowDetail(c, s)})
	}
	return out
}

func shadowDetail(c *Context, s *symbols.Symbol) string {
	if c.Index == nil {
		return ""
	}
	for _, other := range c.Index.Find(s.Name) {
		if other.IsFunction() && other.URI != s.URI && other.Scope.Tag.CrossDocument() {
			return fmt.Sprintf("shadows global '%s' from %s", s.Name, source.URIToPath(other.URI))
		}
	}
	return ""
}

func checkInvalidDirectiveCodes(c *Context, _ *syntax.Node) []Finding {
	lines := make([]int, 0, len(c.Directives.InvalidCodeLines))
	for line := range c.Directives.InvalidCodeLines {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	var out []Finding
	for _, line := range lines {
		for _, ic := range c.Directives.InvalidCodeLines[line] {
			rng := ic.Range
			out = append(out, Finding{Range: &rng, Detail: fmt.Sprintf("'%s' is not a diagnostic code", ic.Text)})
		}
	}
	return out
}
