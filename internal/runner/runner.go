package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"treeprune/internal/config"
	"treeprune/internal/database"
	"treeprune/internal/fsops"
	"treeprune/internal/limiter"
	"treeprune/internal/logging"
	"treeprune/internal/metrics"
	"treeprune/internal/remover"
	"treeprune/internal/safety"
)

// Deps are the optional collaborators of a run
type Deps struct {
	Logger  remover.Logger
	DB      *database.RemovalDB
	Metrics *metrics.Metrics
}

// Summary aggregates the reports of every target
type Summary struct {
	Reports  []remover.Report `json:"reports"`
	Removed  int              `json:"removed"`
	Skipped  int              `json:"skipped"`
	Failures int              `json:"failures"`
	Blocked  int              `json:"blocked"`
}

// ErrNoTargets is returned when there is nothing to walk
var ErrNoTargets = errors.New("no targets to remove")

// RunOnce walks every configured target in order. Failures inside a walk are
// reported, never returned; the error covers configuration problems, a
// cancelled context and metrics export. On cancellation the walk in progress
// stops and the partial summary is returned with ctx.Err().
func RunOnce(ctx context.Context, cfg *config.Config, deps Deps) (*Summary, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if len(cfg.Targets) == 0 {
		return nil, ErrNoTargets
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLeveled(log.Default(), false)
	}

	opts := make([]remover.Options, 0, len(cfg.Targets))
	roots := make([]string, 0, len(cfg.Targets))
	for i, t := range cfg.Targets {
		o, err := targetOptions(cfg, t)
		if err != nil {
			return nil, fmt.Errorf("targets[%d] %s: %w", i, t.Path, err)
		}
		opts = append(opts, o)
		roots = append(roots, t.Path)
	}

	guard := safety.NewGuard(roots, cfg.ProtectedPaths)
	summary := &Summary{}
	start := time.Now()

	for i, t := range cfg.Targets {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		r := remover.New(logger, opts[i])
		r.SetDeleter(limiter.NewDeleter(ctx, fsops.OSDeleter{}, cfg.MaxRemovalRate, 1))
		r.SetGuard(guard)
		if deps.DB != nil {
			r.SetRecorder(deps.DB)
		}
		if deps.Metrics != nil {
			r.SetMetrics(deps.Metrics)
		}

		if cfg.Log {
			logger.Info("walking target",
				"path", t.Path,
				"includes", strings.Join(opts[i].Includes.Strings(), " "),
				"excludes", strings.Join(opts[i].Excludes.Strings(), " "),
			)
		}

		rep := r.RunContext(ctx, t.Path)
		summary.add(rep)
		if err := ctx.Err(); err != nil {
			logger.Error("run interrupted", "path", t.Path, "removed", summary.Removed)
			return summary, err
		}
	}

	logger.Info("run complete",
		"targets", len(cfg.Targets),
		"removed", summary.Removed,
		"skipped", summary.Skipped,
		"failures", summary.Failures,
		"dry_run", cfg.DryRun,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if cfg.MetricsTextfile != "" && deps.Metrics != nil {
		if err := deps.Metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func targetOptions(cfg *config.Config, t config.Target) (remover.Options, error) {
	includes, err := t.Includes.Compile()
	if err != nil {
		return remover.Options{}, &remover.ConfigError{Option: "includes", Err: err}
	}
	excludes, err := t.Excludes.Compile()
	if err != nil {
		return remover.Options{}, &remover.ConfigError{Option: "excludes", Err: err}
	}
	return remover.Options{
		Includes: includes,
		Excludes: excludes,
		KeepRoot: t.KeepRoot,
		Dry:      cfg.DryRun,
		Log:      cfg.Log,
	}, nil
}

func (s *Summary) add(rep remover.Report) {
	s.Reports = append(s.Reports, rep)
	s.Removed += len(rep.Removed)
	s.Skipped += len(rep.Skipped)
	s.Failures += len(rep.Failures)
	for _, f := range rep.Failures {
		if f.Kind == remover.KindBlocked {
			s.Blocked++
		}
	}
}
