package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/scope"
	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
	"fishls/internal/testkit"
)

func extract(t *testing.T, path, src string) *symbols.Forest {
	t.Helper()
	doc := source.NewDocument(source.PathToURI(path), src, 1)
	tree := syntax.Parse(src)
	forest := symbols.Extract(doc, tree.Root)
	require.NoError(t, testkit.CheckForest(forest))
	return forest
}

func names(list []*symbols.Symbol) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

func TestExtractFunctionTree(t *testing.T) {
	src := `function greet -d 'say hi' -a name greeting --inherit-variable outer
    set -l message "$greeting $name"
    for i in 1 2
        set -l inner $i
    end
    echo $message
end
`
	forest := extract(t, "/cfg/functions/greet.fish", src)
	roots := forest.Roots()
	require.Len(t, roots, 1)
	fn := roots[0]
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, symbols.KindFunction, fn.Kind)
	assert.Equal(t, scope.Global, fn.Scope.Tag)

	children := forest.Children(fn)
	assert.Equal(t, []string{"argv", "name", "greeting", "outer", "message", "i"}, names(children))
	assert.Equal(t, symbols.DefInheritVariable, children[3].Def)

	loop := children[5]
	assert.Equal(t, symbols.DefFor, loop.Def)
	assert.Equal(t, []string{"inner"}, names(forest.Children(loop)))
	assert.Equal(t, scope.Local, forest.Children(loop)[0].Scope.Tag)
	assert.Equal(t, fn, forest.Parent(loop))
	assert.Equal(t, "greet", forest.Container(forest.Children(loop)[0]))
}

func TestExtractScriptLevel(t *testing.T) {
	src := `set -gx EDITOR vim
set -q EDITOR
set -e OLD
set PATH[1] /bin
read -l -P 'name? ' answer other
alias ll='ls -l'
`
	forest := extract(t, "/tmp/script.fish", src)
	got := names(forest.Roots())
	assert.Equal(t, []string{"argv", "EDITOR", "PATH", "answer", "other", "ll"}, got)

	roots := forest.Roots()
	assert.True(t, roots[0].IsSynthetic())
	assert.Equal(t, scope.Global, roots[1].Scope.Tag)
	assert.Equal(t, source.Range{
		Start: source.Position{Line: 3, Character: 4},
		End:   source.Position{Line: 3, Character: 8},
	}, roots[2].SelectionRange)
	assert.Equal(t, symbols.KindFunction, roots[5].Kind)
	assert.Equal(t, 8, roots[5].SelectionRange.End.Character)
}

func TestExtractArgparse(t *testing.T) {
	src := `function cli
    argparse 'h/help' 'n/name=' long-only -- $argv
end`
	forest := extract(t, "/tmp/cli.fish", src)
	fn := forest.Roots()[1]
	got := names(forest.Children(fn))
	assert.Equal(t, []string{"argv", "_flag_h", "_flag_help", "_flag_n", "_flag_name", "_flag_long_only"}, got)
	for _, s := range forest.Children(fn)[1:] {
		assert.Equal(t, scope.Function, s.Scope.Tag)
	}
}

func TestExtractSkipsExpansionNames(t *testing.T) {
	forest := extract(t, "/cfg/conf.d/x.fish", "set $name value\nread $other\n")
	assert.Empty(t, forest.Roots())
}

func TestExtractNestedFunctionScope(t *testing.T) {
	forest := extract(t, "/cfg/functions/outer.fish", "function outer\n  function inner\n  end\nend\n")
	outer := forest.Roots()[0]
	var inner *symbols.Symbol
	for _, c := range forest.Children(outer) {
		if c.Name == "inner" {
			inner = c
		}
	}
	require.NotNil(t, inner)
	assert.Equal(t, scope.Function, inner.Scope.Tag)
	assert.Len(t, forest.Globals(), 1)
}

func TestDocumentSymbolsOmitSynthetic(t *testing.T) {
	forest := extract(t, "/tmp/a.fish", "function f -a x\n  set -l y 1\nend\n")
	outline := forest.DocumentSymbols()
	require.Len(t, outline, 1)
	assert.Equal(t, "f", outline[0].Name)
	assert.Equal(t, "function f -a x", outline[0].Detail)
	require.Len(t, outline[0].Children, 2)
	assert.Equal(t, "x", outline[0].Children[0].Name)
	assert.Equal(t, "y", outline[0].Children[1].Name)
}

func TestExtractMalformedFunctionKeepsBodySymbols(t *testing.T) {
	forest := extract(t, "/tmp/a.fish", "function broken\n  set -l x 1\n")
	assert.Contains(t, names(forest.Flat()), "x")
	assert.NotContains(t, names(forest.Flat()), "broken")
}
