package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one treeprune process on its own registry,
// so runs can be exported as a node_exporter textfile without global state
type Metrics struct {
	registry *prometheus.Registry
	mu       sync.Mutex

	// RemovedTotal counts removed (or, in dry-run, would-be removed) entries
	RemovedTotal *prometheus.CounterVec

	// SkippedTotal counts entries rejected by the include/exclude filters
	SkippedTotal *prometheus.CounterVec

	// ErrorsTotal counts failures caught during walks, by kind
	ErrorsTotal *prometheus.CounterVec

	// RunsTotal counts completed walks
	RunsTotal prometheus.Counter

	// RunDuration tracks how long walks take
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last walk
	LastRunTimestamp prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemovedTotal: newCounterVec(
			"entries_removed_total",
			"Total number of entries removed by treeprune.",
			"object", "dry_run",
		),
		SkippedTotal: newCounterVec(
			"entries_skipped_total",
			"Total number of entries rejected by include/exclude filters.",
			"object",
		),
		ErrorsTotal: newCounterVec(
			"errors_total",
			"Total number of errors encountered while removing.",
			"kind",
		),
		RunsTotal: newCounter(
			"runs_total",
			"Total number of completed removal walks.",
		),
		RunDuration: newSecondsHistogram(
			"run_duration_seconds",
			"Duration of removal walks in seconds.",
		),
		LastRunTimestamp: newGauge(
			"last_run_timestamp",
			"Timestamp of the last removal walk (Unix epoch seconds).",
		),
	}

	m.registry.MustRegister(
		m.RemovedTotal,
		m.SkippedTotal,
		m.ErrorsTotal,
		m.RunsTotal,
		m.RunDuration,
		m.LastRunTimestamp,
	)
	return m
}

// Registry exposes the underlying registry as a gatherer
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRemoval(object string, dry bool) {
	m.RemovedTotal.WithLabelValues(object, strconv.FormatBool(dry)).Inc()
}

func (m *Metrics) ObserveSkip(object string) {
	m.SkippedTotal.WithLabelValues(object).Inc()
}

func (m *Metrics) ObserveFailure(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveRun records a finished walk
func (m *Metrics) ObserveRun(d time.Duration) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(d.Seconds())
	m.LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes all metrics in the text exposition format, atomically
// replacing path, for node_exporter's textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
