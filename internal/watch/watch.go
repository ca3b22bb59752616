// Package watch reports batched changes to fish files below a set of roots.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fishls/internal/source"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 150 * time.Millisecond

// Op is the kind of change seen for a path.
type Op uint8

const (
	OpWrite Op = iota
	OpCreate
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "write"
	}
}

// Change is one coalesced file change.
type Change struct {
	Path string
	Op   Op
}

// Handler receives batches sorted by path. It is called from a single
// goroutine.
type Handler func(changes []Change)

type Options struct {
	Debounce time.Duration
	Logf     func(format string, args ...any)
}

// Watcher watches directories recursively. Directories created after Start
// are picked up as they appear.
type Watcher struct {
	fsw      *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logf     func(format string, args ...any)

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logf == nil {
		opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "watch: "+format+"\n", args...)
		}
	}
	return &Watcher{
		fsw:      fsw,
		handler:  handler,
		debounce: opts.Debounce,
		logf:     opts.Logf,
		done:     make(chan struct{}),
	}, nil
}

func skipDir(name string) bool {
	return name == ".git" || name == "node_modules"
}

// Add watches root and every directory below it. Missing roots are ignored.
func (w *Watcher) Add(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Start delivers batches until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.fsw.Close(); err != nil {
			w.logf("close: %v", err)
		}
	})
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	pending := make(map[string]Op)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Change, 0, len(pending))
		for path, op := range pending {
			batch = append(batch, Change{Path: path, Op: op})
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		clear(pending)
		if w.handler != nil {
			w.handler(batch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !skipDir(filepath.Base(ev.Name)) {
						if err := w.Add(ev.Name); err != nil {
							w.logf("add %s: %v", ev.Name, err)
						}
					}
					continue
				}
			}
			if !source.IsFishFile(ev.Name) {
				continue
			}
			pending[ev.Name] = merge(pending[ev.Name], ev.Op)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			flush()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logf("%v", err)
		}
	}
}

// merge folds a raw event into the op already pending for its path. The
// last event decides whether the file still exists.
func merge(prev Op, op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove
	case op.Has(fsnotify.Create):
		return OpCreate
	case prev == OpCreate:
		return OpCreate
	default:
		return OpWrite
	}
}
