package rules

import (
	"fmt"
	"strings"

	"fishls/internal/syntax"
)

// quietCommands are the commands whose output is noise when used only for
// their exit status in a condition.
var quietCommands = []string{"command", "type", "read", "set", "string", "abbr", "builtin", "functions", "jobs"}

// deprecatedEnvNames maps retired fish-lsp variables to their replacements.
var deprecatedEnvNames = map[string]string{
	"fish_lsp_logfile": "fish_lsp_log_file",
}

func definitionOperands(cmd *syntax.Node) []*syntax.Node {
	if syntax.CommandName(cmd) == "read" {
		return syntax.ReadOptions.Operands(syntax.Arguments(cmd))
	}
	return syntax.OptionSpec{}.Operands(syntax.Arguments(cmd))
}

func isExpansionNode(n *syntax.Node) bool {
	switch n.Type {
	case "variable_expansion", "command_substitution":
		return true
	case "concatenation":
		for _, c := range n.NamedChildren() {
			if isExpansionNode(c) {
				return true
			}
		}
	}
	return false
}

func checkSingleQuoteExpansion(_ *Context, n *syntax.Node) []Finding {
	text := n.Text()
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '$' || !isNameByte(text[i+1]) {
			continue
		}
		if i > 0 && text[i-1] == '\\' {
			continue
		}
		end := i + 1
		for end < len(text) && isNameByte(text[end]) {
			end++
		}
		return []Finding{at(n, fmt.Sprintf("'%s' is not expanded inside single quotes", text[i:end]))}
	}
	return nil
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func checkAlias(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "alias") {
		return nil
	}
	return []Finding{at(n, "")}
}

func checkUniversalDefinition(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "set", "read") {
		return nil
	}
	if opt := syntax.FindOption(syntax.Arguments(n), "U", "--universal"); opt != nil {
		return []Finding{at(opt, "")}
	}
	return nil
}

func checkTestStringCharacters(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "test", "[") {
		return nil
	}
	args := syntax.Arguments(n)
	var out []Finding
	for i := 1; i < len(args); i++ {
		prev := args[i-1].Text()
		if prev != "-n" && prev != "-z" {
			continue
		}
		if isExpansionNode(args[i]) {
			out = append(out, at(args[i], fmt.Sprintf(`quote it as "%s"`, args[i].Text())))
		}
	}
	return out
}

func checkQuietConditional(c *Context, n *syntax.Node) []Finding {
	if !c.Options.StrictConditional || !syntax.IsCommandNamed(n, quietCommands...) {
		return nil
	}
	if !inCondition(n) {
		return nil
	}
	args := syntax.Arguments(n)
	if syntax.CommandName(n) == "set" {
		for _, a := range args {
			if a.Type == "command_substitution" {
				return nil
			}
		}
	}
	if syntax.FindOption(args, "q", "--quiet", "--query") != nil {
		return nil
	}
	return []Finding{at(n, fmt.Sprintf("'%s' output is printed inside the condition", syntax.CommandName(n)))}
}

// isAndOr reports whether n is an `and X` or `or X` statement.
func isAndOr(n *syntax.Node) bool {
	if n == nil || n.Type != "conditional_execution" {
		return false
	}
	kw := syntax.Keyword(n)
	return kw == "and" || kw == "or"
}

func isInfixChain(n *syntax.Node) bool {
	return n != nil && n.Type == "conditional_execution" && !isAndOr(n)
}

func isConditional(n *syntax.Node) bool {
	return n != nil && (n.Type == "if_statement" || n.Type == "else_if_clause")
}

// inCondition reports whether cmd decides the branch of an if or else-if:
// it is the condition itself, part of an && / || chain or negation forming
// the condition, or inside an and/or statement that directly follows the
// condition.
func inCondition(cmd *syntax.Node) bool {
	cur := cmd
	var statement *syntax.Node
	for {
		p := cur.Parent()
		if p == nil {
			return false
		}
		switch {
		case p.Type == "negated_statement" || isInfixChain(p):
			cur = p
			continue
		case isAndOr(p) && statement == nil:
			statement = p
			cur = p
			continue
		}
		break
	}
	parent := cur.Parent()
	if !isConditional(parent) {
		return false
	}
	if statement == nil {
		return cur.Field == "condition"
	}
	for prev := statement.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch {
		case prev.Field == "condition":
			return true
		case syntax.IsComment(prev) || isAndOr(prev):
			continue
		}
		return false
	}
	return false
}

func checkExpansionInDefinition(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "set", "read") {
		return nil
	}
	if syntax.FindOption(syntax.Arguments(n), "qe", "--query", "--erase") != nil {
		return nil
	}
	ops := definitionOperands(n)
	if len(ops) == 0 {
		return nil
	}
	def := ops[0]
	if def.Type == "variable_expansion" || strings.HasPrefix(def.Text(), "$") {
		return []Finding{at(def, fmt.Sprintf("use '%s' without '$'", strings.TrimLeft(def.Text(), "$")))}
	}
	return nil
}

func checkArgparseEndStdin(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "argparse") {
		return nil
	}
	for _, a := range syntax.Arguments(n) {
		if syntax.IsDoubleDash(a) {
			return nil
		}
		if a.Type == "variable_expansion" && expansionName(a) == "argv" {
			return []Finding{at(a, "add '--' before $argv")}
		}
	}
	return nil
}

func expansionName(n *syntax.Node) string {
	for _, c := range n.NamedChildren() {
		if c.Type == "variable_name" {
			return c.Text()
		}
	}
	return ""
}

func checkDeprecatedEnvName(_ *Context, n *syntax.Node) []Finding {
	target := n
	if syntax.IsCommand(n) {
		if !syntax.IsCommandNamed(n, "set") {
			return nil
		}
		ops := definitionOperands(n)
		if len(ops) == 0 {
			return nil
		}
		target = ops[0]
	}
	if repl, ok := deprecatedEnvNames[target.Text()]; ok {
		return []Finding{at(target, fmt.Sprintf("use '%s'", repl))}
	}
	return nil
}
