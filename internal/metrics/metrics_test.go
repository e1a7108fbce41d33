package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsRegistered verifies every metric is gathered from the registry
func TestMetricsRegistered(t *testing.T) {
	m := New()

	// Vec metrics only appear once a label set exists
	m.ObserveRemoval("file", false)
	m.ObserveSkip("directory")
	m.ObserveFailure("io")
	m.ObserveRun(time.Second)

	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"treeprune_entries_removed_total",
		"treeprune_entries_skipped_total",
		"treeprune_errors_total",
		"treeprune_runs_total",
		"treeprune_run_duration_seconds",
		"treeprune_last_run_timestamp",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

// TestNewIsIsolated verifies two instances never share counters
func TestNewIsIsolated(t *testing.T) {
	a := New()
	b := New()

	a.ObserveRemoval("file", true)
	a.ObserveRemoval("file", true)

	if got := testutil.ToFloat64(a.RemovedTotal.WithLabelValues("file", "true")); got != 2 {
		t.Errorf("expected 2 dry-run file removals, got %v", got)
	}
	if got := testutil.ToFloat64(b.RemovedTotal.WithLabelValues("file", "true")); got != 0 {
		t.Errorf("expected isolated registry, got %v", got)
	}
}

func TestObserveFailureByKind(t *testing.T) {
	m := New()
	m.ObserveFailure("not_empty")
	m.ObserveFailure("not_empty")
	m.ObserveFailure("io")

	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("not_empty")); got != 2 {
		t.Errorf("expected 2 not_empty errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("io")); got != 1 {
		t.Errorf("expected 1 io error, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRemoval("directory", false)
	m.ObserveRun(10 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "treeprune.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		`treeprune_entries_removed_total{dry_run="false",object="directory"} 1`,
		"treeprune_runs_total 1",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("textfile missing %q:\n%s", want, content)
		}
	}
}

func TestWriteTextfileBadPath(t *testing.T) {
	m := New()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
