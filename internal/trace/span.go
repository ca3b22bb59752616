package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

func nextSeq() uint64 { return seq.Add(1) }

type tracerKey struct{}

// spanState is what a context remembers about the enclosing span.
type spanState struct {
	id  uint64
	doc Doc
}

type spanKey struct{}

// WithTracer attaches t to ctx; nil attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

func current(ctx context.Context) spanState {
	if ctx != nil {
		if s, ok := ctx.Value(spanKey{}).(spanState); ok {
			return s
		}
	}
	return spanState{}
}

// DocFromContext returns the document of the innermost document span.
func DocFromContext(ctx context.Context) Doc {
	return current(ctx).doc
}

// Span is one open begin/end pair. A nil or disabled Span accepts every
// call.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	doc     Doc
	started time.Time
	extra   map[string]string
}

// Start opens a span under the one in ctx. The span inherits the enclosing
// document, so pass and node events stay attributed to their file.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	return StartDocument(ctx, scope, name, Doc{})
}

// StartDocument opens a span concerning doc. A zero doc inherits the
// enclosing document.
func StartDocument(ctx context.Context, scope Scope, name string, doc Doc) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Level().ShouldEmit(scope) {
		return ctx, &Span{}
	}
	enclosing := current(ctx)
	if doc.IsZero() {
		doc = enclosing.doc
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  enclosing.id,
		scope:   scope,
		name:    name,
		doc:     doc,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Seq:      nextSeq(),
		Kind:     KindBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     name,
		Doc:      doc,
	})
	return context.WithValue(ctx, spanKey{}, spanState{id: s.id, doc: doc}), s
}

// Set attaches key=value to the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	now := time.Now()
	elapsed := now.Sub(s.started)
	s.tracer.Emit(&Event{
		Time:     now,
		Seq:      nextSeq(),
		Kind:     KindEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Doc:      s.doc,
		Elapsed:  elapsed,
		Detail:   detail,
		Extra:    s.extra,
	})
	return elapsed
}

// ID returns the span ID, 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under the span in ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Level().ShouldEmit(scope) {
		return
	}
	emitPoint(ctx, t, scope, name, detail)
}

const errorPoint = "error"

// Error records err under the span in ctx. Errors pass from LevelError up.
func Error(ctx context.Context, err error) {
	t := FromContext(ctx)
	if err == nil || !Enabled(t) {
		return
	}
	emitPoint(ctx, t, ScopeServer, errorPoint, err.Error())
}

func emitPoint(ctx context.Context, t Tracer, scope Scope, name, detail string) {
	enclosing := current(ctx)
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: enclosing.id,
		Name:     name,
		Doc:      enclosing.doc,
		Detail:   detail,
	})
}
