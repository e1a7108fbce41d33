package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"treeprune/internal/database"
	"treeprune/internal/exitcodes"
)

type historyOptions struct {
	dbPath    string
	recent    int
	action    string
	path      string
	stats     bool
	since     time.Duration
	days      int
	limit     int
	pruneDays int
	json      bool
}

func newHistoryCmd() *cobra.Command {
	o := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the removal history database",
		Example: `  treeprune history --db removals.db --recent 10          # 10 most recent decisions
  treeprune history --db removals.db --since 24h          # everything from the last day
  treeprune history --db removals.db --stats --days 7     # counts per action for a week
  treeprune history --db removals.db --action ERROR       # only failures
  treeprune history --db removals.db --path '/srv/build/%' # decisions under /srv/build
  treeprune history --db removals.db --prune-days 90      # drop records older than 90 days`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&o.dbPath, "db", "", "Path to the removal database written by 'treeprune --db' (required)")
	cmd.Flags().IntVar(&o.recent, "recent", 0, "Show N most recent records")
	cmd.Flags().StringVar(&o.action, "action", "", "Filter by action (REMOVE, DRY_RUN, SKIP, ERROR)")
	cmd.Flags().StringVar(&o.path, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	cmd.Flags().BoolVar(&o.stats, "stats", false, "Show counts per action")
	cmd.Flags().DurationVar(&o.since, "since", 0, "Show records from this long ago until now, e.g. 24h")
	cmd.Flags().IntVar(&o.days, "days", 30, "Number of days for statistics")
	cmd.Flags().IntVar(&o.limit, "limit", 100, "Maximum records for --action and --path")
	cmd.Flags().IntVar(&o.pruneDays, "prune-days", 0, "Delete records older than N days and compact the database")
	cmd.Flags().BoolVar(&o.json, "json", false, "Output in JSON format")

	return cmd
}

func (o *historyOptions) run(out io.Writer) error {
	if o.dbPath == "" {
		return withCode(exitcodes.InvalidConfig, errors.New("--db is required"))
	}
	// opening would create an empty database
	if _, err := os.Stat(o.dbPath); err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("no removal history at %s: %w", o.dbPath, err))
	}

	db, err := database.NewRemovalDB(o.dbPath)
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("open database %s: %w", o.dbPath, err))
	}
	defer db.Close()

	switch {
	case o.pruneDays > 0:
		return o.prune(out, db)
	case o.stats:
		stats, err := db.GetRemovalStats(o.days)
		if err != nil {
			return withCode(exitcodes.RuntimeError, fmt.Errorf("get statistics: %w", err))
		}
		if o.json {
			return writeJSON(out, stats)
		}
		printStats(out, stats, o.days)
		return nil
	case o.recent > 0:
		return o.show(out, "", func() ([]database.RemovalRecord, error) {
			return db.GetRecentRemovals(o.recent)
		})
	case o.since > 0:
		now := time.Now()
		return o.show(out, "Records since "+now.Add(-o.since).Format("2006-01-02 15:04:05"), func() ([]database.RemovalRecord, error) {
			return db.GetRemovalsByDateRange(now.Add(-o.since), now)
		})
	case o.action != "":
		action := strings.ToUpper(o.action)
		return o.show(out, "Records with action: "+action, func() ([]database.RemovalRecord, error) {
			return db.GetRemovalsByAction(action, o.limit)
		})
	case o.path != "":
		return o.show(out, "Records matching path pattern: "+o.path, func() ([]database.RemovalRecord, error) {
			return db.GetRemovalsByPath(o.path, o.limit)
		})
	default:
		return withCode(exitcodes.InvalidConfig,
			errors.New("choose one of --recent, --since, --stats, --action, --path or --prune-days"))
	}
}

func (o *historyOptions) show(out io.Writer, title string, query func() ([]database.RemovalRecord, error)) error {
	records, err := query()
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("query history: %w", err))
	}
	if o.json {
		return writeJSON(out, records)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return nil
}

func (o *historyOptions) prune(out io.Writer, db *database.RemovalDB) error {
	n, err := db.DeleteOldRecords(o.pruneDays)
	if err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("delete old records: %w", err))
	}
	if err := db.Vacuum(); err != nil {
		return withCode(exitcodes.RuntimeError, fmt.Errorf("vacuum: %w", err))
	}
	fmt.Fprintf(out, "Deleted %d records older than %d days\n", n, o.pruneDays)
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printStats(out io.Writer, stats *database.RemovalStats, days int) {
	fmt.Fprintf(out, "Removal Statistics (Last %d days)\n", days)
	fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(out, "Total Removed:  %d\n", stats.TotalRemoved)
	fmt.Fprintf(out, "Total Dry Run:  %d\n", stats.TotalDryRun)
	fmt.Fprintf(out, "Total Skipped:  %d\n", stats.TotalSkipped)
	fmt.Fprintf(out, "Total Errors:   %d\n", stats.TotalErrors)
}

func printRecords(out io.Writer, records []database.RemovalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tType\tPath\tError")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t----\t-----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.ObjectType, r.Path, r.ErrorMessage)
	}
	_ = w.Flush()
}
