package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
targets:
  - path: /srv/build/../build
    includes: '\.o$'
    excludes: ['keep', '\.git/']
    keep_root: true
  - path: /var/tmp/cache
dry_run: true
log: true
logging:
  file: /var/log/treeprune/treeprune.log
  color: never
database_path: /var/lib/treeprune/removals.db
metrics_textfile: /var/lib/node_exporter/treeprune.prom
protected_paths: [/srv/build/release]
max_removal_rate: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(cfg.Targets))
	}
	first := cfg.Targets[0]
	if first.Path != "/srv/build" {
		t.Errorf("path should be cleaned, got %s", first.Path)
	}
	if len(first.Includes) != 1 || first.Includes[0] != `\.o$` {
		t.Errorf("scalar includes should become a one-element list, got %v", first.Includes)
	}
	if len(first.Excludes) != 2 {
		t.Errorf("expected 2 excludes, got %v", first.Excludes)
	}
	if !first.KeepRoot || cfg.Targets[1].KeepRoot {
		t.Error("keep_root must apply per target")
	}
	if !cfg.DryRun || !cfg.Log {
		t.Error("dry_run and log should be set")
	}
	if cfg.Logging.RotationDays != 30 {
		t.Errorf("expected default rotation 30, got %d", cfg.Logging.RotationDays)
	}
	if cfg.Logging.Color != ColorNever {
		t.Errorf("expected color never, got %s", cfg.Logging.Color)
	}
	if cfg.MaxRemovalRate != 50 {
		t.Errorf("expected rate 50, got %v", cfg.MaxRemovalRate)
	}
	if cfg.DatabasePath == "" || cfg.MetricsTextfile == "" {
		t.Error("database and metrics paths should be kept")
	}

	patterns, err := first.Excludes.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !patterns.Any("/srv/build/.git/HEAD") {
		t.Error("compiled excludes should match .git paths")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
		substr  string
	}{
		{"no targets", "dry_run: true\n", errNoTargets, ""},
		{"relative path", "targets: [{path: build}]\n", errInvalidPath, ""},
		{"empty path", "targets: [{path: ''}]\n", errInvalidPath, ""},
		{"bad include", "targets: [{path: /x, includes: '('}]\n", errInvalidRegex, "includes"},
		{"bad exclude", "targets: [{path: /x, excludes: ['ok', '[']}]\n", errInvalidRegex, "excludes"},
		{"mapping patterns", "targets: [{path: /x, includes: {a: b}}]\n", errBadPatterns, ""},
		{"bad color", "targets: [{path: /x}]\nlogging: {color: rainbow}\n", errBadColor, ""},
		{"negative rotation", "targets: [{path: /x}]\nlogging: {rotation_days: -1}\n", errBadRotation, ""},
		{"negative rate", "targets: [{path: /x}]\nmax_removal_rate: -2\n", errBadRate, ""},
		{"relative protected", "targets: [{path: /x}]\nprotected_paths: [etc]\n", errInvalidPath, "protected_paths"},
		{"unknown field", "targets: [{path: /x}]\nkeeproot: true\n", nil, "keeproot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should mention %q", err, tt.substr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Logging.RotationDays != 30 || cfg.Logging.Color != ColorAuto {
		t.Errorf("unexpected defaults: %+v", cfg.Logging)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("default config has no targets, got %v", cfg.Targets)
	}
}

func TestTargetValidate(t *testing.T) {
	target := Target{Path: "/tmp/a/./b/", Includes: PatternList{`\.txt$`}}
	if err := target.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if target.Path != "/tmp/a/b" {
		t.Errorf("expected cleaned path, got %s", target.Path)
	}
}
