package trace

import (
	"io"
	"sync"
)

// StreamTracer encodes each admitted event to a writer as it arrives.
// Write errors are dropped: the output is stderr or a log file and must
// not disturb the session.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	owned  io.Closer
	level  Level
	format Format
	closed bool
}

// NewStreamTracer writes to w, which the tracer never closes.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.admits(ev) {
		return
	}
	line := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		_, _ = t.w.Write(line)
	}
}

func (t *StreamTracer) Level() Level { return t.level }

// Close stops writing and closes the file opened by New, if any.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.owned != nil {
		return t.owned.Close()
	}
	return nil
}
