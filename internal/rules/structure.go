package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fishls/internal/syntax"
)

// closers maps an opening token to the token that must close it.
var closers = map[string]string{
	"function": "end",
	"if":       "end",
	"while":    "end",
	"for":      "end",
	"switch":   "end",
	"begin":    "end",
	`"`:        `"`,
	"'":        "'",
	"(":        ")",
	"$(":       ")",
	"[":        "]",
	"{":        "}",
}

// errorCause returns the first opening token among the direct children of an
// ERROR node that is never closed, or nil.
func errorCause(n *syntax.Node) *syntax.Node {
	type open struct {
		node *syntax.Node
		want string
	}
	var stack []open
	for _, c := range n.Children {
		if c.IsNamed() {
			continue
		}
		if top := len(stack) - 1; top >= 0 && stack[top].want == c.Type {
			stack = stack[:top]
			continue
		}
		if want, ok := closers[c.Type]; ok {
			stack = append(stack, open{node: c, want: want})
		}
	}
	if len(stack) == 0 {
		return nil
	}
	return stack[0].node
}

func checkMissingEnd(_ *Context, n *syntax.Node) []Finding {
	cause := errorCause(n)
	if cause == nil {
		return nil
	}
	return []Finding{at(cause, fmt.Sprintf("'%s' is missing '%s'", cause.Type, closers[cause.Type]))}
}

func checkSyntaxError(_ *Context, n *syntax.Node) []Finding {
	if errorCause(n) != nil {
		return nil
	}
	detail := ""
	if kw := syntax.Keyword(n); kw != "" {
		detail = fmt.Sprintf("unexpected '%s'", strings.TrimSpace(kw))
	}
	return []Finding{at(n, detail)}
}

func checkExtraEnd(_ *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "end") {
		return nil
	}
	return []Finding{at(n, "")}
}

func checkZeroIndex(_ *Context, n *syntax.Node) []Finding {
	if n.Text() != "0" {
		return nil
	}
	return []Finding{at(n, "fish lists start at index 1")}
}

func checkSourceFile(c *Context, n *syntax.Node) []Finding {
	if !syntax.IsCommandNamed(n, "source", ".") {
		return nil
	}
	args := syntax.Arguments(n)
	if len(args) != 1 {
		return nil
	}
	path, ok := literalPath(args[0])
	if !ok {
		return nil
	}
	if c.FileExists(path) {
		return nil
	}
	return []Finding{at(args[0], path)}
}

// literalPath returns the filesystem path named by a source argument when it
// can be known without evaluating anything. Relative paths depend on the
// working directory of the shell and are never checked.
func literalPath(arg *syntax.Node) (string, bool) {
	switch arg.Type {
	case "word", "single_quote_string":
	case "double_quote_string":
		if len(arg.NamedChildren()) > 0 {
			return "", false
		}
	default:
		return "", false
	}
	text := syntax.Unquote(arg.Text())
	if arg.Type == "word" && strings.ContainsAny(text, "*?{}\\") {
		return "", false
	}
	if arg.Type == "word" && (text == "~" || strings.HasPrefix(text, "~/")) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		text = filepath.Join(home, strings.TrimPrefix(text, "~"))
	}
	if !filepath.IsAbs(text) {
		return "", false
	}
	return text, true
}
