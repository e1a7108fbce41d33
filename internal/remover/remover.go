package remover

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"treeprune/internal/fsops"
	"treeprune/internal/logging"
	"treeprune/internal/matcher"
)

// Logger is the two-channel logging collaborator: Info for removal notices,
// Error for failures caught during the walk
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Guard vets a path right before it would be removed
type Guard interface {
	Validate(path string) error
}

// Recorder persists one decision of the walk
type Recorder interface {
	RecordRemoval(action, path, object, errMsg string) error
}

// Metrics receives counters for one run
type Metrics interface {
	ObserveRemoval(object string, dry bool)
	ObserveSkip(object string)
	ObserveFailure(kind string)
	ObserveRun(d time.Duration)
}

// Options configure a run. They are never modified by the walk; keep-root is
// applied to the top-level target only.
type Options struct {
	Includes matcher.Patterns
	Excludes matcher.Patterns
	KeepRoot bool
	Dry      bool
	Log      bool
}

func (o Options) validate() error {
	if err := o.Includes.Validate(); err != nil {
		return &ConfigError{Option: "includes", Err: err}
	}
	if err := o.Excludes.Validate(); err != nil {
		return &ConfigError{Option: "excludes", Err: err}
	}
	return nil
}

// Remover walks a tree and removes eligible entries
type Remover struct {
	opts     Options
	logger   Logger
	deleter  fsops.Deleter
	guard    Guard
	recorder Recorder
	metrics  Metrics
}

// New creates a Remover. A nil logger falls back to uncoloured level tags on
// log.Default().
func New(logger Logger, opts Options) *Remover {
	if logger == nil {
		logger = logging.NewLeveled(log.Default(), false)
	}
	return &Remover{
		opts:    opts,
		logger:  logger,
		deleter: fsops.OSDeleter{},
	}
}

// SetDeleter replaces the filesystem deleter
func (r *Remover) SetDeleter(d fsops.Deleter) {
	if d == nil {
		d = fsops.OSDeleter{}
	}
	r.deleter = d
}

// SetGuard installs a safety guard consulted before every removal
func (r *Remover) SetGuard(g Guard) {
	r.guard = g
}

// SetRecorder installs a removal history sink
func (r *Remover) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// SetMetrics installs a metrics sink
func (r *Remover) SetMetrics(m Metrics) {
	r.metrics = m
}

// RemovePath removes target and everything beneath it that the options allow.
// It never fails: missing entries are ignored, every other problem is logged
// and listed in the returned report.
func RemovePath(target string, opts Options, logger Logger) Report {
	return New(logger, opts).Run(target)
}

// Run performs one walk rooted at target
func (r *Remover) Run(target string) Report {
	return r.RunContext(context.Background(), target)
}

// RunContext is Run that stops as soon as ctx is done. Entries not reached by
// then are left untouched and the report is marked Interrupted.
func (r *Remover) RunContext(ctx context.Context, target string) Report {
	start := time.Now()
	w := &walk{ctx: ctx, r: r, report: Report{Target: target, Dry: r.opts.Dry}}

	switch {
	case target == "":
		w.fail(target, "", matcher.ErrInvalidArgument)
	default:
		if err := r.opts.validate(); err != nil {
			w.fail(target, "", err)
			break
		}
		root := target
		if abs, err := filepath.Abs(target); err == nil {
			root = abs
		}
		w.report.Target = root
		w.visit(root, true)
	}

	w.report.Duration = time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveRun(w.report.Duration)
	}
	return w.report
}

// walk holds the state of a single Run
type walk struct {
	ctx    context.Context
	r      *Remover
	report Report
}

// stopped reports whether the run was cancelled
func (w *walk) stopped() bool {
	if w.ctx.Err() != nil {
		w.report.Interrupted = true
		return true
	}
	return false
}

// visit is the error boundary of one recursive step
func (w *walk) visit(path string, isRoot bool) {
	if w.stopped() {
		return
	}
	object, err := w.removeEntry(path, isRoot)
	if err != nil {
		w.fail(path, object, err)
	}
}

func (w *walk) removeEntry(path string, isRoot bool) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", err
	}

	switch mode := info.Mode(); {
	case mode.IsRegular():
		return ObjectFile, w.removeFile(path)
	case mode.IsDir():
		return ObjectDirectory, w.removeDir(path, isRoot)
	default:
		// symlinks, sockets, devices and pipes are left alone
		return "", nil
	}
}

func (w *walk) removeFile(path string) error {
	ok, err := w.eligible(path, ObjectFile)
	if err != nil || !ok {
		return err
	}
	return w.remove(path, ObjectFile, w.r.deleter.Remove)
}

func (w *walk) removeDir(path string, isRoot bool) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("list directory: %w", err)
	}
	for _, entry := range entries {
		w.visit(filepath.Join(path, entry.Name()), false)
	}
	if w.stopped() {
		return nil
	}

	if isRoot && w.r.opts.KeepRoot {
		return nil
	}

	ok, err := w.eligible(path, ObjectDirectory)
	if err != nil || !ok {
		return err
	}

	remaining, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("list directory: %w", err)
	}
	if len(remaining) > 0 {
		return &NotEmptyError{Path: path, Remaining: len(remaining)}
	}

	return w.remove(path, ObjectDirectory, w.r.deleter.RemoveDir)
}

// eligible evaluates the filters and records a skip when they reject path
func (w *walk) eligible(path, object string) (bool, error) {
	ok, err := matcher.CanRemove(path, w.r.opts.Includes, w.r.opts.Excludes)
	if err != nil {
		return false, err
	}
	if !ok {
		w.report.Skipped = append(w.report.Skipped, Entry{Path: path, Object: object})
		if w.r.metrics != nil {
			w.r.metrics.ObserveSkip(object)
		}
		w.record(ActionSkip, path, object, "")
	}
	return ok, nil
}

func (w *walk) remove(path, object string, del func(string) error) error {
	if w.r.guard != nil {
		if err := w.r.guard.Validate(path); err != nil {
			return fmt.Errorf("%w: %w", ErrBlocked, err)
		}
	}

	if w.r.opts.Log {
		msg := fmt.Sprintf("remove %s: %s", object, path)
		if w.r.opts.Dry {
			msg = "[DRY RUN] " + msg
		}
		w.r.logger.Info(msg)
	}

	action := ActionDryRun
	if !w.r.opts.Dry {
		if err := del(path); err != nil {
			return err
		}
		action = ActionRemove
	}

	w.report.Removed = append(w.report.Removed, Entry{Path: path, Object: object})
	if w.r.metrics != nil {
		w.r.metrics.ObserveRemoval(object, w.r.opts.Dry)
	}
	w.record(action, path, object, "")
	return nil
}

// fail converts a caught error into a log line, a report entry and a history
// record. Missing entries are dropped without a trace.
func (w *walk) fail(path, object string, err error) {
	if IsMissing(err) {
		return
	}
	// a throttled removal woken by cancellation is not a failure
	if ctxErr := w.ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		w.report.Interrupted = true
		return
	}

	kind := Kind(err)
	w.r.logger.Error("remove failed", "path", path, "kind", kind, "error", err)
	w.report.Failures = append(w.report.Failures, Failure{
		Path:    path,
		Object:  object,
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	})
	if w.r.metrics != nil {
		w.r.metrics.ObserveFailure(kind)
	}
	w.record(ActionError, path, object, err.Error())
}

func (w *walk) record(action, path, object, errMsg string) {
	if w.r.recorder == nil {
		return
	}
	if err := w.r.recorder.RecordRemoval(action, path, object, errMsg); err != nil {
		w.r.logger.Error("Failed to record to database", "path", path, "error", err)
	}
}
