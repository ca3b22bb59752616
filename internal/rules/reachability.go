package rules

import "fishls/internal/syntax"

// terminatesNode reports whether control never continues past n. It is computed
// bottom-up and memoized per run.
func (c *Context) terminatesNode(n *syntax.Node) bool {
	if v, ok := c.terminates[n]; ok {
		return v
	}
	v := c.computeTerminates(n)
	c.terminates[n] = v
	return v
}

func (c *Context) computeTerminates(n *syntax.Node) bool {
	switch n.Type {
	case "return", "break", "continue":
		return true
	case "command":
		return syntax.IsCommandNamed(n, "exit")
	case "redirected_statement":
		if body := n.ChildByField("body"); body != nil {
			return c.terminatesNode(body)
		}
	case "begin_statement":
		return c.terminalIndex(syntax.Statements(n)) >= 0
	case "if_statement":
		if c.terminalIndex(syntax.Statements(n)) < 0 {
			return false
		}
		hasElse := false
		for _, clause := range syntax.Clauses(n) {
			if clause.Type == "else_clause" {
				hasElse = true
			}
			if c.terminalIndex(syntax.Statements(clause)) < 0 {
				return false
			}
		}
		return hasElse
	case "switch_statement":
		hasDefault := false
		clauses := syntax.Clauses(n)
		for _, clause := range clauses {
			if isDefaultCase(clause) {
				hasDefault = true
			}
			if c.terminalIndex(syntax.Statements(clause)) < 0 {
				return false
			}
		}
		return hasDefault && len(clauses) > 0
	case "conditional_execution":
		// a && X || Y
		if syntax.Keyword(n) != "||" {
			return false
		}
		left := n.FirstNamedChild()
		if left == nil || left.Type != "conditional_execution" || syntax.Keyword(left) != "&&" {
			return false
		}
		x, y := left.LastChild(), n.LastChild()
		return x != nil && y != nil && x.IsNamed() && y.IsNamed() && c.terminatesNode(x) && c.terminatesNode(y)
	}
	return false
}

func isDefaultCase(clause *syntax.Node) bool {
	for _, v := range clause.ChildrenByField("value") {
		if syntax.Unquote(v.Text()) == "*" {
			return true
		}
	}
	return false
}

// terminalIndex returns the index of the last statement of the first
// terminating group in stmts, or -1. A group is one statement, or a statement
// followed by and/or statements in which both an `and` and an `or` branch
// terminate.
func (c *Context) terminalIndex(stmts []*syntax.Node) int {
	for i, s := range stmts {
		if c.terminatesNode(s) {
			return i
		}
		if isAndOr(s) {
			continue
		}
		andExits, orExits := false, false
		j := i + 1
		for ; j < len(stmts) && isAndOr(stmts[j]); j++ {
			inner := stmts[j].FirstNamedChild()
			if inner == nil || !c.terminatesNode(inner) {
				continue
			}
			if syntax.Keyword(stmts[j]) == "and" {
				andExits = true
			} else {
				orExits = true
			}
		}
		if andExits && orExits {
			return j - 1
		}
	}
	return -1
}

// unreachable reports whether stmt follows a terminating group in its
// own sequence.
func (c *Context) unreachable(stmt *syntax.Node) bool {
	parent := stmt.Parent()
	if parent == nil {
		return false
	}
	if parent.Type == "redirected_statement" {
		return c.unreachable(parent)
	}
	stmts := syntax.Statements(parent)
	end := c.terminalIndex(stmts)
	if end < 0 {
		return false
	}
	for _, s := range stmts[end+1:] {
		if s == stmt {
			return true
		}
	}
	return false
}

// insideUnreachable reports whether n lies within a statement that is
// already reported as unreachable.
func (c *Context) insideUnreachable(n *syntax.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if syntax.IsClause(cur) || cur.Field != "" {
			continue
		}
		if c.unreachable(cur) {
			return true
		}
	}
	return false
}

func checkUnreachable(c *Context, n *syntax.Node) []Finding {
	stmts := syntax.Statements(n)
	end := c.terminalIndex(stmts)
	if end < 0 || end == len(stmts)-1 {
		return nil
	}
	if c.insideUnreachable(n) {
		return nil
	}
	out := make([]Finding, 0, len(stmts)-end-1)
	for _, s := range stmts[end+1:] {
		out = append(out, at(s, ""))
	}
	return out
}
