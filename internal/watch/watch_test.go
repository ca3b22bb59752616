package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) <-chan []Change {
	t.Helper()
	batches := make(chan []Change, 16)
	w, err := New(func(changes []Change) { batches <- changes }, Options{Debounce: 20 * time.Millisecond, Logf: t.Logf})
	require.NoError(t, err)
	require.NoError(t, w.Add(root))
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return batches
}

func next(t *testing.T, batches <-chan []Change) []Change {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(3 * time.Second):
		t.Fatal("no batch delivered")
		return nil
	}
}

func TestReportsFishFilesOnly(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	fish := filepath.Join(root, "greet.fish")
	require.NoError(t, os.WriteFile(fish, []byte("function greet\nend\n"), 0o600))

	batch := next(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, fish, batch[0].Path)
	assert.NotEqual(t, OpRemove, batch[0].Op)
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	dir := filepath.Join(root, "functions")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// give the watcher a moment to register the new directory
	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(dir, "x.fish")
	require.NoError(t, os.WriteFile(path, []byte("function x\nend\n"), 0o600))

	batch := next(t, batches)
	require.NotEmpty(t, batch)
	assert.Equal(t, path, batch[len(batch)-1].Path)

	require.NoError(t, os.Remove(path))
	batch = next(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, OpRemove, batch[0].Op)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		prev Op
		op   fsnotify.Op
		want Op
	}{
		{"write", OpWrite, fsnotify.Write, OpWrite},
		{"create stays create", OpCreate, fsnotify.Write, OpCreate},
		{"remove wins", OpCreate, fsnotify.Remove, OpRemove},
		{"rename is remove", OpWrite, fsnotify.Rename, OpRemove},
		{"recreate", OpRemove, fsnotify.Create, OpCreate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(tt.prev, tt.op))
		})
	}
}

func TestAddMissingRoot(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	defer w.Stop()
	assert.NoError(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}
