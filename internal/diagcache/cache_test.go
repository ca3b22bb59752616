package diagcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/analysis"
	"fishls/internal/diag"
	"fishls/internal/metrics"
	"fishls/internal/source"
)

const testURI = "file:///ws/script.fish"

type publication struct {
	uri   string
	diags []diag.Diagnostic
}

type recorder struct {
	mu   sync.Mutex
	pubs []publication
	ch   chan publication
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan publication, 64)}
}

func (r *recorder) publish(uri string, diags []diag.Diagnostic) {
	r.mu.Lock()
	r.pubs = append(r.pubs, publication{uri, diags})
	r.mu.Unlock()
	r.ch <- publication{uri, diags}
}

func (r *recorder) wait(t *testing.T) publication {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publication")
		return publication{}
	}
}

func (r *recorder) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case p := <-r.ch:
		t.Fatalf("unexpected publication %v", p)
	case <-time.After(within):
	}
}

func at(line int, code diag.Code) diag.Diagnostic {
	return diag.NewAt(code, source.Range{
		Start: source.Position{Line: line},
		End:   source.Position{Line: line, Character: 3},
	}, "")
}

func fixed(list ...diag.Diagnostic) ComputeFunc {
	return func(context.Context, string) ([]diag.Diagnostic, error) {
		return list, nil
	}
}

func newCache(t *testing.T, rec *recorder, compute ComputeFunc, debounce time.Duration) *Cache {
	t.Helper()
	c := New(context.Background(), Options{
		Compute:  compute,
		Publish:  rec.publish,
		Debounce: func() time.Duration { return debounce },
		Logf:     t.Logf,
	})
	t.Cleanup(c.Stop)
	return c
}

func TestDebounceCollapsesRequests(t *testing.T) {
	rec := newRecorder()
	var calls atomic.Int32
	compute := func(context.Context, string) ([]diag.Diagnostic, error) {
		calls.Add(1)
		return []diag.Diagnostic{at(0, diag.UsedAlias)}, nil
	}
	c := newCache(t, rec, compute, 30*time.Millisecond)

	for range 5 {
		c.RequestUpdate(testURI, false, nil)
	}
	assert.True(t, c.Pending(testURI))
	assert.Equal(t, StateScheduled, c.State(testURI))

	p := rec.wait(t)
	assert.Len(t, p.diags, 1)
	rec.none(t, 80*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StatePublished, c.State(testURI))
	assert.Zero(t, c.PendingCount())
}

func TestImmediateSkipsDebounce(t *testing.T) {
	rec := newRecorder()
	c := newCache(t, rec, fixed(at(1, diag.ExtraEnd)), time.Hour)

	c.RequestUpdate(testURI, true, nil)
	p := rec.wait(t)
	assert.Equal(t, testURI, p.uri)
	got, ok := c.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, p.diags, got)
	assert.True(t, c.Has(testURI))
}

func TestSupersededComputationIsCancelled(t *testing.T) {
	rec := newRecorder()
	started := make(chan int32, 4)
	var calls atomic.Int32
	compute := func(ctx context.Context, _ string) ([]diag.Diagnostic, error) {
		n := calls.Add(1)
		started <- n
		if n == 1 {
			<-ctx.Done()
			return []diag.Diagnostic{at(9, diag.SyntaxError)}, ctx.Err()
		}
		return []diag.Diagnostic{at(2, diag.UsedAlias)}, nil
	}
	c := newCache(t, rec, compute, time.Millisecond)
	before := testutil.ToFloat64(metrics.CacheCancellations)

	c.RequestUpdate(testURI, true, nil)
	require.Equal(t, int32(1), <-started)
	assert.Equal(t, StateComputing, c.State(testURI))

	c.RequestUpdate(testURI, true, nil)
	require.Equal(t, int32(2), <-started)

	p := rec.wait(t)
	require.Len(t, p.diags, 1)
	assert.Equal(t, diag.UsedAlias, p.diags[0].Code)
	rec.none(t, 50*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CacheCancellations))
}

func TestDeleteDuringComputePublishesOnlyEmpty(t *testing.T) {
	rec := newRecorder()
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context, _ string) ([]diag.Diagnostic, error) {
		close(started)
		<-release
		// ignores cancellation on purpose; the result must still be dropped
		return []diag.Diagnostic{at(0, diag.UsedAlias)}, nil
	}
	c := newCache(t, rec, compute, time.Millisecond)

	c.RequestUpdate(testURI, true, nil)
	<-started
	c.Delete(testURI)
	p := rec.wait(t)
	assert.Empty(t, p.diags)
	assert.NotNil(t, p.diags)

	close(release)
	rec.none(t, 50*time.Millisecond)
	assert.False(t, c.Has(testURI))
	assert.Equal(t, StateIdle, c.State(testURI))
}

func TestClearPublishesEmptyForEveryURI(t *testing.T) {
	rec := newRecorder()
	c := newCache(t, rec, fixed(at(0, diag.UsedAlias)), time.Millisecond)
	c.RequestUpdate("file:///a.fish", true, nil)
	c.RequestUpdate("file:///b.fish", true, nil)
	rec.wait(t)
	rec.wait(t)

	c.Clear()
	cleared := map[string]bool{}
	for range 2 {
		p := rec.wait(t)
		assert.Empty(t, p.diags)
		cleared[p.uri] = true
	}
	assert.Equal(t, map[string]bool{"file:///a.fish": true, "file:///b.fish": true}, cleared)
	assert.False(t, c.Has("file:///a.fish"))
}

func TestLocalizedEditRepublishesOptimistically(t *testing.T) {
	rec := newRecorder()
	block := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context, _ string) ([]diag.Diagnostic, error) {
		if calls.Add(1) == 1 {
			return []diag.Diagnostic{at(1, diag.UsedAlias), at(10, diag.ExtraEnd)}, nil
		}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}
	c := newCache(t, rec, compute, time.Millisecond)
	c.RequestUpdate(testURI, true, nil)
	require.Len(t, rec.wait(t).diags, 2)

	c.RequestUpdate(testURI, false, &source.LineSpan{Start: 2, End: 2})
	p := rec.wait(t)
	require.Len(t, p.diags, 1, "line 1 is within the padded span")
	assert.Equal(t, diag.ExtraEnd, p.diags[0].Code)
	close(block)
}

func TestOptimisticRepublishNeedsSurvivors(t *testing.T) {
	tests := []struct {
		name    string
		changed source.LineSpan
	}{
		{"nothing removed", source.LineSpan{Start: 20, End: 20}},
		{"everything removed", source.LineSpan{Start: 0, End: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			c := newCache(t, rec, fixed(at(1, diag.UsedAlias), at(10, diag.ExtraEnd)), time.Hour)
			c.RequestUpdate(testURI, true, nil)
			rec.wait(t)

			c.RequestUpdate(testURI, false, &tt.changed)
			rec.none(t, 30*time.Millisecond)
		})
	}
}

func TestDisabledPublishesEmpty(t *testing.T) {
	rec := newRecorder()
	var computed atomic.Bool
	c := New(context.Background(), Options{
		Compute: func(context.Context, string) ([]diag.Diagnostic, error) {
			computed.Store(true)
			return nil, nil
		},
		Publish: rec.publish,
		Enabled: func() bool { return false },
	})
	c.RequestUpdate(testURI, true, nil)
	p := rec.wait(t)
	assert.Empty(t, p.diags)
	rec.none(t, 30*time.Millisecond)
	assert.False(t, computed.Load())
}

func TestComputeErrorIsLoggedNotPublished(t *testing.T) {
	rec := newRecorder()
	logged := make(chan string, 1)
	c := New(context.Background(), Options{
		Compute: func(context.Context, string) ([]diag.Diagnostic, error) {
			return nil, errors.New("boom")
		},
		Publish: rec.publish,
		Logf: func(format string, args ...any) {
			logged <- fmt.Sprintf(format, args...)
		},
	})
	c.RequestUpdate(testURI, true, nil)
	select {
	case msg := <-logged:
		assert.Contains(t, msg, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("error was not logged")
	}
	rec.none(t, 30*time.Millisecond)
	assert.False(t, c.Has(testURI))
}

func TestMissingDocumentPublishesEmpty(t *testing.T) {
	rec := newRecorder()
	a := analysis.New(analysis.Options{Logf: t.Logf})
	c := newCache(t, rec, a.Diagnostics, time.Millisecond)

	c.RequestUpdate("file:///ws/gone.fish", true, nil)
	p := rec.wait(t)
	assert.Equal(t, "file:///ws/gone.fish", p.uri)
	assert.NotNil(t, p.diags)
	assert.Empty(t, p.diags)
	assert.Equal(t, StatePublished, c.State("file:///ws/gone.fish"))
}

func TestPublicationsAreMonotonic(t *testing.T) {
	rec := newRecorder()
	var calls atomic.Int32
	compute := func(ctx context.Context, _ string) ([]diag.Diagnostic, error) {
		n := int(calls.Add(1))
		select {
		case <-time.After(time.Duration(5-n%5) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []diag.Diagnostic{at(n, diag.UsedAlias)}, nil
	}
	c := newCache(t, rec, compute, time.Millisecond)
	for range 20 {
		c.RequestUpdate(testURI, true, nil)
		time.Sleep(time.Millisecond)
	}
	rec.wait(t)
	deadline := time.After(2 * time.Second)
	for c.Pending(testURI) {
		select {
		case <-deadline:
			t.Fatal("computation never settled")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StatePublished, c.State(testURI))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.pubs)
	prev := -1
	for _, p := range rec.pubs {
		require.Len(t, p.diags, 1)
		line := p.diags[0].Range.Start.Line
		assert.Greater(t, line, prev, "publications must follow request order")
		prev = line
	}
	got, ok := c.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, rec.pubs[len(rec.pubs)-1].diags, got)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "computing", StateComputing.String())
	assert.Equal(t, "unknown", State(42).String())
}
