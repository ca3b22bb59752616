package trace

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Gauge reports one live value for heartbeat events, such as the number of
// pending diagnostic computations.
type Gauge func() int

var gauges = struct {
	sync.Mutex
	byName map[string]Gauge
}{byName: make(map[string]Gauge)}

// RegisterGauge adds p under name to every heartbeat until the returned
// function is called. A later registration of the same name replaces p.
func RegisterGauge(name string, p Gauge) (unregister func()) {
	gauges.Lock()
	gauges.byName[name] = p
	gauges.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			gauges.Lock()
			delete(gauges.byName, name)
			gauges.Unlock()
		})
	}
}

func readGauges() map[string]string {
	gauges.Lock()
	names := make([]string, 0, len(gauges.byName))
	fns := make([]Gauge, 0, len(gauges.byName))
	for name := range gauges.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fns = append(fns, gauges.byName[name])
	}
	gauges.Unlock()

	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = strconv.Itoa(fns[i]())
	}
	return out
}

// Heartbeat emits a heartbeat with the registered gauge values at a fixed
// interval. Heartbeats with growing pending counts and no span ends point at
// a stuck computation rather than an idle server.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat starts beating into t. It returns nil when t is disabled
// or interval is not positive; Stop accepts nil.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if !Enabled(t) || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(t, interval)
	return h
}

func (h *Heartbeat) run(t Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for beat := 1; ; beat++ {
		select {
		case now := <-ticker.C:
			t.Emit(&Event{
				Time:   now,
				Seq:    nextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeServer,
				Name:   "heartbeat",
				Detail: "#" + strconv.Itoa(beat),
				Extra:  readGauges(),
			})
		case <-h.stop:
			return
		}
	}
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
