package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/source"
	"fishls/internal/syntax"
)

// findToken returns the first named node whose text is text and whose type
// is one of the definition name types.
func findToken(t *testing.T, tree *syntax.Tree, text string) *syntax.Node {
	t.Helper()
	var found *syntax.Node
	tree.Root.Walk(func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if (n.Type == "word" || n.Type == "variable_name") && n.Text() == text {
			found = n
			return false
		}
		return true
	})
	require.NotNil(t, found, "token %q not found", text)
	return found
}

func TestVariableScopes(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		token    string
		tag      Tag
		nodeType string
	}{
		{"global flag", "set -g foo 1", "foo", Global, "program"},
		{"combined short flags", "set -gx foo 1", "foo", Global, "program"},
		{"universal long flag", "set --universal foo 1", "foo", Universal, "program"},
		{"local at top level", "set -l foo 1", "foo", Local, "program"},
		{"local inside if", "if true\n  set -l foo 1\nend", "foo", Local, "if_statement"},
		{"no flag top level", "set foo 1", "foo", Inherit, "program"},
		{"no flag in function", "function f\n  set foo 1\nend", "foo", Function, "function_definition"},
		{"function flag", "function f\n  if true\n    set -f foo 1\n  end\nend", "foo", Function, "function_definition"},
		{"local in function block", "function f\n  for i in 1\n    set -l foo 1\n  end\nend", "foo", Local, "for_statement"},
		{"flag after name", "set foo 1 -g", "foo", Global, "program"},
		{"read local", "read -l answer", "answer", Local, "program"},
		{"for at top level", "for i in 1 2\nend", "i", Global, "program"},
		{"for in function", "function f\n  for i in 1 2\n  end\nend", "i", Function, "function_definition"},
		{"function argument", "function f -a arg\nend", "arg", Function, "function_definition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := syntax.Parse(tt.src)
			n := findToken(t, tree, tt.token)
			got := Resolve(n, source.Autoload{})
			assert.Equal(t, tt.tag, got.Tag, got.String())
			require.NotNil(t, got.Node)
			assert.Equal(t, tt.nodeType, got.Node.Type)
			assert.True(t, got.Contains(n), "scope must contain its definition")
		})
	}
}

func TestFunctionNameScopes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
		tag  Tag
	}{
		{"autoloaded match", "function foo\nend", "/cfg/functions/foo.fish", Global},
		{"autoloaded helper", "function foo\nend\nfunction helper\nend", "/cfg/functions/foo.fish", Local},
		{"conf.d", "function helper\nend", "/cfg/conf.d/init.fish", Global},
		{"config.fish", "function helper\nend", "/cfg/config.fish", Global},
		{"plain script", "function helper\nend", "/tmp/script.fish", Local},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := syntax.Parse(tt.src)
			var target *syntax.Node
			tree.Root.Walk(func(n *syntax.Node) bool {
				if syntax.IsFunctionDefinition(n) {
					target = n.ChildByField("name")
				}
				return true
			})
			require.NotNil(t, target)
			got := Resolve(target, source.ClassifyPath(tt.path))
			assert.Equal(t, tt.tag, got.Tag)
			assert.True(t, syntax.IsProgram(got.Node))
		})
	}
}

func TestNestedFunctionScope(t *testing.T) {
	tree := syntax.Parse("function outer\n  function inner\n  end\nend")
	inner := findToken(t, tree, "inner")
	got := Resolve(inner, source.ClassifyPath("/cfg/functions/inner.fish"))
	assert.Equal(t, Function, got.Tag)
	assert.Equal(t, "outer", syntax.FunctionName(got.Node))
}

func TestTagOrder(t *testing.T) {
	order := []Tag{Inherit, Local, Function, Universal, Global}
	for i := 1; i < len(order); i++ {
		assert.True(t, order[i].Outranks(order[i-1]))
		assert.Equal(t, -1, order[i-1].Compare(order[i]))
	}
	assert.Equal(t, 0, Local.Compare(Local))
	assert.True(t, Global.CrossDocument())
	assert.True(t, Universal.CrossDocument())
	assert.False(t, Function.CrossDocument())
}

func TestVisible(t *testing.T) {
	assert.True(t, Scope{Tag: Local}.Visible("a", "a"))
	assert.False(t, Scope{Tag: Local}.Visible("a", "b"))
	assert.True(t, Scope{Tag: Global}.Visible("a", "b"))
}

func TestAliasScope(t *testing.T) {
	tree := syntax.Parse("alias ll 'ls -l'")
	cmd := syntax.Statements(tree.Root)[0]
	assert.Equal(t, Global, ForAlias(cmd, source.ClassifyPath("/cfg/config.fish")).Tag)
	assert.Equal(t, Local, ForAlias(cmd, source.ClassifyPath("/tmp/x.fish")).Tag)
}
