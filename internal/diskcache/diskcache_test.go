package diskcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/diag"
	"fishls/internal/source"
)

func sample() []diag.Diagnostic {
	return []diag.Diagnostic{
		diag.NewAt(diag.UsedAlias, source.Range{
			Start: source.Position{Line: 2, Character: 0},
			End:   source.Position{Line: 2, Character: 5},
		}, "ll"),
		diag.NewAt(diag.ExtraEnd, source.Range{
			Start: source.Position{Line: 7},
			End:   source.Position{Line: 7, Character: 3},
		}, ""),
	}
}

func TestPutGet(t *testing.T) {
	c, err := OpenDir(t.TempDir())
	require.NoError(t, err)

	key := Key([]byte("alias ll 'ls -l'\n"), "v1")
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := sample()
	require.NoError(t, c.Put(key, "/ws/a.fish", want))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Code, got[i].Code)
		assert.Equal(t, want[i].Severity, got[i].Severity)
		assert.Equal(t, want[i].Range, got[i].Range)
		assert.Equal(t, want[i].Message, got[i].Message)
		assert.Equal(t, want[i].Source, got[i].Source)
		assert.Nil(t, got[i].Node)
	}
}

func TestEmptyResultIsAHit(t *testing.T) {
	c, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	key := Key([]byte("echo ok\n"))
	require.NoError(t, c.Put(key, "/ws/ok.fish", nil))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestKeySalt(t *testing.T) {
	content := []byte("echo\n")
	assert.Equal(t, Key(content, "a", "b"), Key(content, "a", "b"))
	assert.NotEqual(t, Key(content, "ab", "c"), Key(content, "a", "bc"))
	assert.NotEqual(t, Key(content, "v1"), Key(content, "v2"))
	assert.False(t, Key(content).IsZero())
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	c, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	key := Key([]byte("x"))
	require.NoError(t, c.Put(key, "x.fish", sample()))

	p := c.pathFor(key)
	require.NoError(t, os.WriteFile(p, []byte("garbage"), 0o600))

	_, ok, err := c.Get(key)
	assert.False(t, ok)
	_ = err
}

func TestDropAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := OpenDir(dir)
	require.NoError(t, err)
	key := Key([]byte("x"))
	require.NoError(t, c.Put(key, "x.fish", sample()))

	require.NoError(t, c.DropAll())
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.DirExists(t, dir)
}

func TestNilCache(t *testing.T) {
	var c *Cache
	require.NoError(t, c.Put(Key(nil), "", nil))
	_, ok, err := c.Get(Key(nil))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.Dir())
}
