package syntax

import "strings"

// Structural predicates over fish trees shared by the resolver, the
// extractor and the diagnostic rules.

func IsProgram(n *Node) bool { return n != nil && n.Type == "program" }

func IsFunctionDefinition(n *Node) bool { return n != nil && n.Type == "function_definition" }

func IsCommand(n *Node) bool { return n != nil && n.Type == "command" }

func IsComment(n *Node) bool { return n != nil && n.Type == "comment" }

// IsTerminator reports whether n is an anonymous statement terminator.
func IsTerminator(n *Node) bool {
	if n == nil || n.named {
		return false
	}
	switch n.Type {
	case "\n", ";", "&":
		return true
	}
	return false
}

// IsScopeNode reports whether n bounds the visibility of local variables.
func IsScopeNode(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case "program", "function_definition", "for_statement", "while_statement",
		"if_statement", "else_if_clause", "else_clause", "switch_statement",
		"case_clause", "begin_statement":
		return true
	}
	return false
}

// IsClause reports whether n is a branch of an if or switch statement.
func IsClause(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case "else_if_clause", "else_clause", "case_clause":
		return true
	}
	return false
}

// CommandName returns the literal name of a command node, or "".
func CommandName(n *Node) string {
	if !IsCommand(n) {
		return ""
	}
	return n.ChildByField("name").Text()
}

// IsCommandNamed reports whether n is a command invoking one of names.
func IsCommandNamed(n *Node, names ...string) bool {
	name := CommandName(n)
	if name == "" {
		return false
	}
	for _, want := range names {
		if name == want {
			return true
		}
	}
	return false
}

// Arguments returns the argument nodes of a command.
func Arguments(cmd *Node) []*Node {
	return cmd.ChildrenByField("argument")
}

// FunctionName returns the name token text of a function definition.
func FunctionName(fn *Node) string {
	if !IsFunctionDefinition(fn) {
		return ""
	}
	return fn.ChildByField("name").Text()
}

// EnclosingFunction returns the nearest function_definition above n.
func EnclosingFunction(n *Node) *Node {
	return n.Ancestor(IsFunctionDefinition)
}

// Root returns the outermost ancestor of n.
func Root(n *Node) *Node {
	for n != nil && n.parent != nil {
		n = n.parent
	}
	return n
}

// IsOption reports whether the token looks like a command-line option.
func IsOption(n *Node) bool {
	if n == nil {
		return false
	}
	text := n.Text()
	return strings.HasPrefix(text, "-") && text != "-" && text != "--"
}

// IsDoubleDash reports whether n is the end-of-options marker.
func IsDoubleDash(n *Node) bool {
	return n != nil && n.Text() == "--"
}

// Unquote strips one level of surrounding quotes from a token.
func Unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Body returns the named statements and comments nested directly inside a
// block, excluding header fields and if/switch clauses.
func Body(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if n.Type == "redirected_statement" {
		return Body(n.ChildByField("body"))
	}
	var out []*Node
	for _, c := range n.Children {
		if !c.named || c.Field != "" || IsClause(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Statements is Body without comments.
func Statements(n *Node) []*Node {
	body := Body(n)
	out := body[:0:0]
	for _, c := range body {
		if !IsComment(c) {
			out = append(out, c)
		}
	}
	return out
}

// Clauses returns the else-if/else or case clauses of a block.
func Clauses(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if IsClause(c) {
			out = append(out, c)
		}
	}
	return out
}

// Keyword returns the first anonymous child of n, typically the opening
// keyword of a block or the operator of a chain.
func Keyword(n *Node) string {
	if n == nil {
		return ""
	}
	for _, c := range n.Children {
		if !c.named {
			return c.Type
		}
	}
	return ""
}
