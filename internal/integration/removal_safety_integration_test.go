package integration

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treeprune/internal/config"
	"treeprune/internal/database"
	"treeprune/internal/logging"
	"treeprune/internal/metrics"
	"treeprune/internal/remover"
	"treeprune/internal/runner"
)

// TestRemovalSafetyIntegration drives a config file through the runner against
// a real filesystem with history and metrics enabled
func TestRemovalSafetyIntegration(t *testing.T) {
	// 1. Create temporary filesystem structure
	tmpRoot := t.TempDir()
	workDir := filepath.Join(tmpRoot, "work")
	outsideDir := filepath.Join(tmpRoot, "outside")

	for _, dir := range []string{
		filepath.Join(workDir, "old_backups"),
		filepath.Join(workDir, ".git"),
		filepath.Join(workDir, "pinned"),
		outsideDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
	}

	files := map[string]string{
		filepath.Join(workDir, "junk.log"):                  "deletable content",
		filepath.Join(workDir, "old_backups", "old.tar.gz"): "old backup",
		filepath.Join(workDir, ".git", "HEAD"):              "ref: refs/heads/main",
		filepath.Join(workDir, "pinned", "keep.txt"):        "pinned",
		filepath.Join(outsideDir, "keep.txt"):               "MUST KEEP",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", path, err)
		}
	}

	// Symlink inside the target pointing outside of it
	linkOut := filepath.Join(workDir, "link_to_outside")
	if err := os.Symlink(outsideDir, linkOut); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	// 2. Write the config file
	cfgPath := filepath.Join(tmpRoot, "config.yaml")
	cfgYAML := strings.Join([]string{
		"targets:",
		"  - path: " + workDir,
		"    excludes: ['/\\.git(/|$)']",
		"    keep_root: true",
		"log: true",
		"database_path: " + filepath.Join(tmpRoot, "db", "removals.db"),
		"metrics_textfile: " + filepath.Join(tmpRoot, "treeprune.prom"),
		"protected_paths: [" + filepath.Join(workDir, "pinned") + "]",
		"",
	}, "\n")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewRemovalDB(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var logBuf bytes.Buffer
	deps := runner.Deps{
		Logger:  logging.NewLeveled(log.New(&logBuf, "", 0), false),
		DB:      db,
		Metrics: metrics.New(),
	}

	// 3a. DRY-RUN: no filesystem changes
	t.Run("DryRun_NoFilesystemChanges", func(t *testing.T) {
		dryCfg := *cfg
		dryCfg.DryRun = true

		summary, err := runner.RunOnce(context.Background(), &dryCfg, deps)
		if err != nil {
			t.Fatalf("RunOnce failed: %v", err)
		}
		for path := range files {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("DRY-RUN VIOLATION: %s touched: %v", path, err)
			}
		}
		if summary.Removed == 0 {
			t.Error("dry run should report would-be removals")
		}
		if !strings.Contains(logBuf.String(), "[DRY RUN] remove file: ") {
			t.Errorf("expected dry-run notices, got %q", logBuf.String())
		}
	})

	// 3b. EXECUTE: real removal
	t.Run("Execute_RemovesOnlyEligible", func(t *testing.T) {
		summary, err := runner.RunOnce(context.Background(), cfg, deps)
		if err != nil {
			t.Fatalf("RunOnce failed: %v", err)
		}

		for _, gone := range []string{
			filepath.Join(workDir, "junk.log"),
			filepath.Join(workDir, "old_backups", "old.tar.gz"),
			filepath.Join(workDir, "old_backups"),
		} {
			if _, err := os.Lstat(gone); !os.IsNotExist(err) {
				t.Errorf("%s should be removed, stat err = %v", gone, err)
			}
		}

		for _, kept := range []string{
			filepath.Join(workDir, ".git", "HEAD"),
			filepath.Join(workDir, "pinned", "keep.txt"),
			filepath.Join(outsideDir, "keep.txt"),
			linkOut,
			workDir,
		} {
			if _, err := os.Lstat(kept); err != nil {
				t.Errorf("SAFETY VIOLATION: %s removed: %v", kept, err)
			}
		}

		if summary.Blocked != 1 {
			t.Errorf("expected the pinned file to be blocked once, got %d", summary.Blocked)
		}
		if !summary.Reports[0].HasKind(remover.KindNotEmpty) {
			t.Error("pinned directory should be reported as not empty")
		}
	})

	// 3c. Second run changes nothing more
	t.Run("SecondRun_Idempotent", func(t *testing.T) {
		summary, err := runner.RunOnce(context.Background(), cfg, deps)
		if err != nil {
			t.Fatalf("RunOnce failed: %v", err)
		}
		if summary.Removed != 0 {
			t.Errorf("second run removed %d entries", summary.Removed)
		}
	})

	// 4. History and metrics were written
	t.Run("Audit", func(t *testing.T) {
		counts, err := db.GetRemovalStats(1)
		if err != nil {
			t.Fatalf("GetRemovalStats failed: %v", err)
		}
		if counts.TotalRemoved != 3 {
			t.Errorf("expected 3 REMOVE records, got %d", counts.TotalRemoved)
		}
		if counts.TotalDryRun == 0 || counts.TotalSkipped == 0 || counts.TotalErrors == 0 {
			t.Errorf("expected dry-run, skip and error records, got %+v", counts.ByAction)
		}

		data, err := os.ReadFile(cfg.MetricsTextfile)
		if err != nil {
			t.Fatalf("metrics textfile missing: %v", err)
		}
		if !strings.Contains(string(data), "treeprune_runs_total 3") {
			t.Errorf("expected three runs in metrics, got:\n%s", data)
		}
	})
}
