package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"fishls/internal/source"
	"fishls/internal/trace"
)

// Progress is reported once before indexing starts (Done == 0) and after
// every file.
type Progress struct {
	Done  int
	Total int
	Path  string
	Err   error
}

// IndexOptions bounds a workspace indexing run.
type IndexOptions struct {
	// MaxFiles caps the number of files indexed; 0 means unlimited.
	MaxFiles int
	// Jobs is the parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Progress, when set, is called serially.
	Progress func(Progress)
}

// IndexSummary describes a completed indexing run.
type IndexSummary struct {
	Files     int
	Failed    int
	Skipped   int
	Truncated bool
}

// ListFishFiles returns the sorted *.fish files below roots. Missing roots
// are skipped; a root that is itself a file is listed as is.
func ListFishFiles(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if name := d.Name(); path != root && (name == ".git" || name == "node_modules") {
					return fs.SkipDir
				}
				return nil
			}
			if source.IsFishFile(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// IndexWorkspace analyzes every fish file below roots in parallel and
// registers its global symbols. Open documents keep their editor contents.
// Per-file read errors are reported through Progress and do not stop the
// run; cancellation does.
func (a *Analyzer) IndexWorkspace(ctx context.Context, roots []string, opts IndexOptions) (IndexSummary, error) {
	ctx, span := trace.Start(ctx, trace.ScopeServer, "index")
	defer span.End(fmt.Sprintf("roots=%d", len(roots)))

	files, err := ListFishFiles(roots)
	if err != nil {
		return IndexSummary{}, err
	}
	var summary IndexSummary
	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
		summary.Truncated = true
	}
	summary.Files = len(files)

	var progressMu sync.Mutex
	done := 0
	report := func(path string, err error) {
		if opts.Progress == nil && err == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		if path != "" {
			done++
		}
		if err != nil {
			summary.Failed++
		}
		if opts.Progress != nil {
			opts.Progress(Progress{Done: done, Total: len(files), Path: path, Err: err})
		}
	}
	report("", nil)
	if len(files) == 0 {
		return summary, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	var skipped int
	var skippedMu sync.Mutex
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uri := source.PathToURI(path)
			if _, open := a.docs.Get(uri); open {
				skippedMu.Lock()
				skipped++
				skippedMu.Unlock()
				report(path, nil)
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				report(path, err)
				return nil
			}
			doc := source.NewDocumentFromPath(path, content)
			if _, err := a.analyze(gctx, doc, TriggerIndex); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report(path, err)
				return nil
			}
			report(path, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	summary.Skipped = skipped
	return summary, nil
}

// Reload refreshes the analysis of a file changed on disk. Open documents
// are left alone; a file that no longer exists is forgotten.
func (a *Analyzer) Reload(ctx context.Context, path string) error {
	uri := source.PathToURI(path)
	if _, open := a.docs.Get(uri); open {
		return nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.Forget(uri)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = a.analyze(ctx, source.NewDocumentFromPath(path, content), TriggerIndex)
	return err
}
