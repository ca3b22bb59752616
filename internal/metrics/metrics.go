// Package metrics exposes prometheus instruments for analysis and the
// diagnostic cache. Instruments register on the default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fishls"

var (
	// Analyses counts document analyses. Labels: trigger (open, change, index, cli)
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Document analyses performed",
	}, []string{"trigger"})

	// AnalysisDuration measures parse plus symbol extraction time.
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time to parse a document and rebuild its symbols",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// Diagnostics counts emitted diagnostics. Labels: code
	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "diagnostics_total",
		Help:      "Diagnostics emitted by the rule engine",
	}, []string{"code"})

	// RulePanics counts recovered panics. Labels: code
	RulePanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "panics_total",
		Help:      "Rule evaluations that panicked and were skipped",
	}, []string{"code"})

	// CacheRequests counts diagnostic update requests. Labels: mode (debounced, immediate)
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "diagcache",
		Name:      "requests_total",
		Help:      "Diagnostic update requests",
	}, []string{"mode"})

	// CacheCancellations counts in-flight computations superseded or deleted.
	CacheCancellations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "diagcache",
		Name:      "cancellations_total",
		Help:      "Diagnostic computations cancelled before publishing",
	})

	// CachePublishes counts publications. Labels: kind (computed, optimistic, cleared)
	CachePublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "diagcache",
		Name:      "publishes_total",
		Help:      "Diagnostic lists sent to the client",
	}, []string{"kind"})

	// ComputeDuration measures one full diagnostic computation.
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "diagcache",
		Name:      "compute_duration_seconds",
		Help:      "Time to compute diagnostics for one document",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// IndexedDocuments tracks the documents contributing to the workspace index.
	IndexedDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "index",
		Name:      "documents",
		Help:      "Documents currently contributing to the workspace symbol index",
	})
)

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
