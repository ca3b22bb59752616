package symbols_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
)

func forestFor(path, src string) *symbols.Forest {
	doc := source.NewDocument(source.PathToURI(path), src, 1)
	return symbols.Extract(doc, syntax.Parse(src).Root)
}

func TestIndexReplaceRegistersOnlyGlobals(t *testing.T) {
	idx := symbols.NewIndex()
	f := forestFor("/cfg/functions/foo.fish", "function foo\n  set -l x 1\n  set -g shared 1\nend\nfunction helper\nend\n")
	idx.Replace(f.URI, f)

	require.Len(t, idx.Find("foo"), 1)
	assert.Len(t, idx.Find("shared"), 1)
	assert.Empty(t, idx.Find("x"))
	assert.Empty(t, idx.Find("helper"))
	assert.Equal(t, []string{"foo", "shared"}, idx.Names())
	assert.Equal(t, 2, idx.Len())
}

func TestIndexReplaceDropsStaleContribution(t *testing.T) {
	idx := symbols.NewIndex()
	first := forestFor("/cfg/conf.d/a.fish", "function one\nend\n")
	idx.Replace(first.URI, first)
	second := forestFor("/cfg/conf.d/a.fish", "function two\nend\n")
	idx.Replace(second.URI, second)

	assert.Empty(t, idx.Find("one"))
	assert.Len(t, idx.Find("two"), 1)

	idx.Remove(second.URI)
	assert.Empty(t, idx.Find("two"))
	assert.Zero(t, idx.Len())
	assert.Empty(t, idx.Documents())
}

func TestIndexQuery(t *testing.T) {
	idx := symbols.NewIndex()
	a := forestFor("/cfg/conf.d/a.fish", "function git_branch\nend\nfunction git_status\nend\nset -U fish_greeting hi\n")
	b := forestFor("/cfg/functions/git_branch.fish", "function git_branch\nend\n")
	idx.Replace(a.URI, a)
	idx.Replace(b.URI, b)

	got := idx.Query("git_")
	require.Len(t, got, 3)
	assert.Equal(t, "git_branch", got[0].Name)
	assert.Equal(t, a.URI, got[0].Location.URI)
	assert.Equal(t, b.URI, got[1].Location.URI)
	assert.Equal(t, "git_status", got[2].Name)

	assert.Len(t, idx.Query(""), 4)
	assert.NotNil(t, idx.FindFunction("git_status"))
}

func TestIndexConcurrentAccess(t *testing.T) {
	idx := symbols.NewIndex()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/cfg/conf.d/f" + string(rune('a'+i)) + ".fish"
			f := forestFor(path, "function shared\nend\n")
			idx.Replace(f.URI, f)
			_ = idx.Query("sh")
		}(i)
	}
	wg.Wait()
	assert.Len(t, idx.Find("shared"), 8)
}
