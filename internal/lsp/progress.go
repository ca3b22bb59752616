package lsp

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.lsp.dev/protocol"

	"fishls/internal/analysis"
	"fishls/internal/watch"
)

// workDone reports one long-running operation through $/progress. It is
// inert when the client did not advertise work-done progress support.
type workDone struct {
	s     *Server
	token *protocol.ProgressToken

	mu   sync.Mutex
	last uint32
}

func (s *Server) beginWorkDone(title string) *workDone {
	w := &workDone{s: s}
	s.mu.Lock()
	supported, conn := s.workDoneProgress, s.conn
	s.mu.Unlock()
	if !supported || conn == nil {
		return w
	}
	token := protocol.NewProgressToken(uuid.NewString())
	if err := conn.Call(s.ctx, "window/workDoneProgress/create", &protocol.WorkDoneProgressCreateParams{Token: *token}, nil); err != nil {
		s.logf("progress: %v", err)
		return w
	}
	w.token = token
	w.send(&protocol.WorkDoneProgressBegin{Kind: protocol.WorkDoneProgressKindBegin, Title: title})
	return w
}

func (w *workDone) send(value any) {
	if w.token == nil {
		return
	}
	w.s.notify("$/progress", &protocol.ProgressParams{Token: *w.token, Value: value})
}

// report sends a percentage; repeated percentages are dropped.
func (w *workDone) report(done, total int, message string) {
	if w.token == nil || total <= 0 {
		return
	}
	pct := uint32(min(done, total) * 100 / total)
	w.mu.Lock()
	if pct == w.last && done != 0 {
		w.mu.Unlock()
		return
	}
	w.last = pct
	w.mu.Unlock()
	w.send(&protocol.WorkDoneProgressReport{Kind: protocol.WorkDoneProgressKindReport, Message: message, Percentage: pct})
}

func (w *workDone) end(message string) {
	w.send(&protocol.WorkDoneProgressEnd{Kind: protocol.WorkDoneProgressKindEnd, Message: message})
}

func (s *Server) indexWorkspace(roots []string) {
	defer close(s.indexed)
	cfg := s.config.Snapshot()
	progress := s.beginWorkDone("Indexing fish files")

	summary, err := s.analyzer.IndexWorkspace(s.ctx, roots, analysis.IndexOptions{
		MaxFiles: cfg.Workspace.MaxBackgroundFiles,
		Progress: func(p analysis.Progress) {
			if p.Err != nil {
				s.logf("index %s: %v", p.Path, p.Err)
			}
			progress.report(p.Done, p.Total, fmt.Sprintf("%d/%d", p.Done, p.Total))
		},
	})
	if err != nil {
		progress.end("cancelled")
		s.logf("index: %v", err)
		return
	}
	msg := fmt.Sprintf("indexed %d files", summary.Files-summary.Failed)
	if summary.Truncated {
		msg += fmt.Sprintf(" (limit %d reached)", cfg.Workspace.MaxBackgroundFiles)
	}
	progress.end(msg)
	s.logf("%s", msg)

	// global symbols changed under the open documents
	s.republishAll(false)
	if s.opts.Watch {
		s.startWatcher(roots)
	}
}

func (s *Server) startWatcher(roots []string) {
	w, err := watch.New(s.onDiskChanges, watch.Options{Logf: s.logf})
	if err != nil {
		s.logf("%v", err)
		return
	}
	for _, root := range roots {
		if err := w.Add(root); err != nil {
			s.logf("watch %s: %v", root, err)
		}
	}
	s.mu.Lock()
	if s.shutdownRequested || s.ctx.Err() != nil {
		s.mu.Unlock()
		w.Stop()
		return
	}
	s.watcher = w
	s.mu.Unlock()
	w.Start(s.ctx)
}

func (s *Server) onDiskChanges(changes []watch.Change) {
	for _, c := range changes {
		if err := s.analyzer.Reload(s.ctx, c.Path); err != nil {
			s.logf("reload %s: %v", c.Path, err)
		}
	}
	s.republishAll(false)
}
