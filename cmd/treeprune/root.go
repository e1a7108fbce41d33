package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"treeprune/internal/config"
	"treeprune/internal/database"
	"treeprune/internal/exitcodes"
	"treeprune/internal/logging"
	"treeprune/internal/metrics"
	"treeprune/internal/remover"
	"treeprune/internal/runner"
)

type rootOptions struct {
	configPath      string
	includes        []string
	excludes        []string
	keepRoot        bool
	dryRun          bool
	logRemovals     bool
	dbPath          string
	metricsTextfile string
	color           string
	maxRate         float64
	strict          bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "treeprune [flags] [path...]",
		Short: "Recursively remove files and directories selected by regular expressions",
		Long: `treeprune walks each path depth-first and removes every file and directory
whose absolute path passes the include and exclude filters. Directories are
removed only once they are empty.

The walk is best-effort: missing entries are ignored and any other failure is
logged while the rest of the tree is still processed. Use --strict to turn
logged failures into a non-zero exit status.`,
		Example: `  treeprune --include '\.o$' ./build
  treeprune --exclude '/\.git(/|$)' --keep-root --log /tmp/workspace
  treeprune --config /etc/treeprune/config.yaml --dry-run`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	cmd.Flags().StringVar(&o.configPath, "config", "", "Path to a YAML configuration file")
	cmd.Flags().StringArrayVar(&o.includes, "include", nil, "Only remove paths matching this regular expression; applies to positional paths (repeatable)")
	cmd.Flags().StringArrayVar(&o.excludes, "exclude", nil, "Never remove paths matching this regular expression; applies to positional paths (repeatable)")
	cmd.Flags().BoolVar(&o.keepRoot, "keep-root", false, "Empty each positional path but keep the path itself")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Report what would be removed without touching the filesystem")
	cmd.Flags().BoolVar(&o.logRemovals, "log", false, "Log every removal")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "Record every decision in this SQLite database")
	cmd.Flags().StringVar(&o.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().StringVar(&o.color, "color", "", "Color log levels: auto, always or never")
	cmd.Flags().Float64Var(&o.maxRate, "max-rate", 0, "Maximum removals per second, 0 for unlimited")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit non-zero when any failure was logged")

	cmd.AddCommand(newHistoryCmd())

	return cmd
}

func (o *rootOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.buildConfig(cmd, args)
	if err != nil {
		return withCode(exitcodes.InvalidConfig, err)
	}

	std := logging.NewWithConfig(cfg, cmd.OutOrStdout())
	logger := logging.NewLeveled(std, logging.UseColor(cfg))

	deps := runner.Deps{Logger: logger}
	if cfg.DatabasePath != "" {
		db, err := database.NewRemovalDB(cfg.DatabasePath)
		if err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("open database: %w", err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()
		deps.DB = db
	}
	if cfg.MetricsTextfile != "" {
		deps.Metrics = metrics.New()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := runner.RunOnce(ctx, cfg, deps)
	if err != nil {
		var cfgErr *remover.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			return withCode(exitcodes.InvalidConfig, err)
		case errors.Is(err, context.Canceled):
			return withCode(exitcodes.Interrupted,
				fmt.Errorf("interrupted after %d removals: %w", summary.Removed, err))
		}
		return withCode(exitcodes.RuntimeError, err)
	}

	if !o.strict {
		return nil
	}
	switch {
	case summary.Blocked > 0:
		return withCode(exitcodes.SafetyViolation,
			fmt.Errorf("%d removals refused by the safety guard", summary.Blocked))
	case summary.Failures > 0:
		return withCode(exitcodes.PartialFailure,
			fmt.Errorf("%d failures logged", summary.Failures))
	}
	return nil
}

// buildConfig merges the config file, positional paths and flags. Flags the
// user set explicitly override the file.
func (o *rootOptions) buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		t := config.Target{
			Path:     abs,
			Includes: config.PatternList(o.includes),
			Excludes: config.PatternList(o.excludes),
			KeepRoot: o.keepRoot,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		cfg.Targets = append(cfg.Targets, t)
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("nothing to remove: pass one or more paths or --config")
	}

	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = o.dryRun
	}
	if flags.Changed("log") {
		cfg.Log = o.logRemovals
	}
	if flags.Changed("db") {
		cfg.DatabasePath = o.dbPath
	}
	if flags.Changed("metrics-textfile") {
		cfg.MetricsTextfile = o.metricsTextfile
	}
	if flags.Changed("max-rate") {
		if o.maxRate < 0 {
			return nil, fmt.Errorf("--max-rate cannot be negative, got %v", o.maxRate)
		}
		cfg.MaxRemovalRate = o.maxRate
	}
	if flags.Changed("color") {
		switch o.color {
		case config.ColorAuto, config.ColorAlways, config.ColorNever:
			cfg.Logging.Color = o.color
		default:
			return nil, fmt.Errorf("--color must be auto, always or never, got %q", o.color)
		}
	}

	return cfg, nil
}
