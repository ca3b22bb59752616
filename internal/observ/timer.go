// Package observ records wall-clock phases of a CLI run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one named, timed step.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
	Count int
}

// Timer tracks phases in the order they were begun. Phases with the same
// name are merged, so per-file work started from several goroutines adds up
// under one entry. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	byName map[string]int
	now    func() time.Time
}

func NewTimer() *Timer {
	return &Timer{
		phases: make([]Phase, 0, 8),
		byName: make(map[string]int),
		now:    time.Now,
	}
}

// Begin starts (or resumes) the named phase and returns a function that
// ends it. The note passed last wins.
func (t *Timer) Begin(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	start := t.now()
	t.mu.Lock()
	if _, ok := t.byName[name]; !ok {
		t.byName[name] = len(t.phases)
		t.phases = append(t.phases, Phase{Name: name, Start: start})
	}
	t.mu.Unlock()

	var once sync.Once
	return func(note string) {
		once.Do(func() {
			elapsed := t.now().Sub(start)
			t.mu.Lock()
			p := &t.phases[t.byName[name]]
			p.Dur += elapsed
			p.Count++
			if note != "" {
				p.Note = note
			}
			t.mu.Unlock()
		})
	}
}

// Summary renders the phases as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Count > 1 {
			fmt.Fprintf(&b, "  x%d", p.Count)
		}
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PhaseReport is the serialized form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the timer for JSON output.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns a snapshot. Total is the sum of the phase durations, which
// overstates wall time when phases overlap.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Count:      phase.Count,
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
