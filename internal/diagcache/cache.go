// Package diagcache schedules diagnostic computations per document: edits
// are debounced, superseded computations are cancelled, and publications
// for one URI are serialized in request order.
package diagcache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"fishls/internal/diag"
	"fishls/internal/metrics"
	"fishls/internal/source"
	"fishls/internal/trace"
)

// DefaultDebounce is the delay between the last request and a computation.
const DefaultDebounce = 400 * time.Millisecond

// linePadding widens an edited span when dropping stale diagnostics.
const linePadding = 1

// ComputeFunc produces the diagnostics of uri. It must return promptly once
// ctx is cancelled.
type ComputeFunc func(ctx context.Context, uri string) ([]diag.Diagnostic, error)

// PublishFunc delivers a diagnostic list to the client. Calls for one URI
// never overlap.
type PublishFunc func(uri string, diags []diag.Diagnostic)

// State is the lifecycle position of one URI.
type State uint8

const (
	StateIdle State = iota
	StateScheduled
	StateComputing
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateComputing:
		return "computing"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Options configures a Cache.
type Options struct {
	Compute ComputeFunc
	Publish PublishFunc
	// Debounce returns the current delay; nil means DefaultDebounce.
	Debounce func() time.Duration
	// Enabled reports whether diagnostics are switched on; nil means always.
	Enabled func() bool
	Logf    func(format string, args ...any)
}

type entry struct {
	pubMu sync.Mutex

	gen     uint64
	state   State
	timer   *time.Timer
	cancel  context.CancelFunc
	diags   []diag.Diagnostic
	hasList bool
	deleted bool
}

// Cache is the per-URI diagnostic scheduler.
type Cache struct {
	ctx  context.Context
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a cache whose computations derive from ctx.
func New(ctx context.Context, opts Options) *Cache {
	if opts.Compute == nil {
		panic("diagcache: nil Compute")
	}
	if opts.Publish == nil {
		opts.Publish = func(string, []diag.Diagnostic) {}
	}
	if opts.Logf == nil {
		opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "diagcache: "+format+"\n", args...)
		}
	}
	return &Cache{ctx: ctx, opts: opts, entries: make(map[string]*entry)}
}

func (c *Cache) debounce() time.Duration {
	if c.opts.Debounce == nil {
		return DefaultDebounce
	}
	if d := c.opts.Debounce(); d > 0 {
		return d
	}
	return DefaultDebounce
}

func (c *Cache) enabled() bool {
	return c.opts.Enabled == nil || c.opts.Enabled()
}

// stopLocked cancels the pending timer and the in-flight computation of e.
func (c *Cache) stopLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
		metrics.CacheCancellations.Inc()
	}
}

// RequestUpdate schedules a recomputation of uri, superseding any pending or
// running one. immediate skips the debounce. changed is the edited line span
// of an incremental edit, or nil for full replacements and opens.
func (c *Cache) RequestUpdate(uri string, immediate bool, changed *source.LineSpan) {
	mode := "debounced"
	if immediate {
		mode = "immediate"
	}
	metrics.CacheRequests.WithLabelValues(mode).Inc()

	c.mu.Lock()
	e := c.entries[uri]
	if e == nil {
		e = &entry{}
		c.entries[uri] = e
	}
	e.gen++
	gen := e.gen
	c.stopLocked(e)

	if !c.enabled() {
		e.state = StateIdle
		c.mu.Unlock()
		c.publishIfCurrent(uri, e, gen, []diag.Diagnostic{}, "cleared")
		return
	}

	var optimistic []diag.Diagnostic
	if changed != nil && e.hasList && len(e.diags) > 0 {
		kept := make([]diag.Diagnostic, 0, len(e.diags))
		for _, d := range e.diags {
			if !changed.Overlaps(d.Range.Start.Line, d.Range.End.Line, linePadding) {
				kept = append(kept, d)
			}
		}
		if len(kept) < len(e.diags) && len(kept) > 0 {
			optimistic = kept
		}
	}
	e.state = StateScheduled
	c.mu.Unlock()

	if optimistic != nil {
		c.publishIfCurrent(uri, e, gen, optimistic, "optimistic")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen || e.deleted {
		return
	}
	if immediate {
		go c.run(uri, e, gen)
		return
	}
	e.timer = time.AfterFunc(c.debounce(), func() { c.run(uri, e, gen) })
}

// publishIfCurrent delivers diags when gen is still the newest request of e.
func (c *Cache) publishIfCurrent(uri string, e *entry, gen uint64, diags []diag.Diagnostic, kind string) bool {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	c.mu.Lock()
	if e.gen != gen || e.deleted {
		c.mu.Unlock()
		return false
	}
	e.diags = diags
	e.hasList = true
	c.mu.Unlock()
	c.opts.Publish(uri, diags)
	metrics.CachePublishes.WithLabelValues(kind).Inc()
	return true
}

func (c *Cache) run(uri string, e *entry, gen uint64) {
	c.mu.Lock()
	if e.gen != gen || e.deleted {
		c.mu.Unlock()
		return
	}
	e.timer = nil
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	e.state = StateComputing
	c.mu.Unlock()
	defer cancel()

	ctx, span := trace.StartDocument(ctx, trace.ScopeDocument, "diagnostics", trace.Doc{URI: uri})
	start := time.Now()
	diags, err := c.opts.Compute(ctx, uri)
	metrics.ObserveSince(metrics.ComputeDuration, start)
	if err == nil && ctx.Err() == nil {
		span.Set("diagnostics", strconv.Itoa(len(diags)))
	}
	span.End("")

	if err != nil || ctx.Err() != nil {
		if err != nil && ctx.Err() == nil {
			c.opts.Logf("compute %s: %v", uri, err)
			trace.Error(ctx, err)
		}
		c.mu.Lock()
		if e.gen == gen && !e.deleted {
			e.cancel = nil
			e.state = StateIdle
			if e.hasList {
				e.state = StatePublished
			}
		}
		c.mu.Unlock()
		return
	}
	if diags == nil {
		diags = []diag.Diagnostic{}
	}

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	c.mu.Lock()
	if e.gen != gen || e.deleted || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	e.diags = diags
	e.hasList = true
	e.cancel = nil
	e.state = StatePublished
	c.mu.Unlock()
	c.opts.Publish(uri, diags)
	metrics.CachePublishes.WithLabelValues("computed").Inc()
}

// Delete cancels all work for uri, forgets its list and publishes an empty
// list.
func (c *Cache) Delete(uri string) {
	c.mu.Lock()
	e := c.entries[uri]
	if e != nil {
		c.stopLocked(e)
		e.deleted = true
		delete(c.entries, uri)
	}
	c.mu.Unlock()
	c.clear(uri, e)
}

// Clear deletes every URI.
func (c *Cache) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[string]*entry)
	for _, e := range old {
		c.stopLocked(e)
		e.deleted = true
	}
	c.mu.Unlock()
	for uri, e := range old {
		c.clear(uri, e)
	}
}

func (c *Cache) clear(uri string, e *entry) {
	if e != nil {
		e.pubMu.Lock()
		defer e.pubMu.Unlock()
	}
	c.opts.Publish(uri, []diag.Diagnostic{})
	metrics.CachePublishes.WithLabelValues("cleared").Inc()
}

// Stop cancels all pending work without publishing.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.stopLocked(e)
		e.deleted = true
	}
	c.entries = make(map[string]*entry)
}

// Get returns a copy of the last list published for uri.
func (c *Cache) Get(uri string) ([]diag.Diagnostic, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[uri]
	if e == nil || !e.hasList {
		return nil, false
	}
	return append([]diag.Diagnostic(nil), e.diags...), true
}

// Has reports whether a list was published for uri.
func (c *Cache) Has(uri string) bool {
	_, ok := c.Get(uri)
	return ok
}

// State returns the lifecycle state of uri.
func (c *Cache) State(uri string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[uri]; e != nil {
		return e.state
	}
	return StateIdle
}

// Pending reports whether uri has a scheduled or running computation.
func (c *Cache) Pending(uri string) bool {
	s := c.State(uri)
	return s == StateScheduled || s == StateComputing
}

// PendingCount returns the number of URIs with scheduled or running work.
func (c *Cache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.state == StateScheduled || e.state == StateComputing {
			n++
		}
	}
	return n
}
