package remover

import "time"

// Object types recorded for each entry
const (
	ObjectFile      = "file"
	ObjectDirectory = "directory"
)

// Actions written to the removal history
const (
	ActionRemove = "REMOVE"
	ActionDryRun = "DRY_RUN"
	ActionSkip   = "SKIP"
	ActionError  = "ERROR"
)

// Entry is a path touched by the walk
type Entry struct {
	Path   string `json:"path"`
	Object string `json:"object"`
}

// Failure is an error caught at the boundary of one recursive step
type Failure struct {
	Path    string `json:"path"`
	Object  string `json:"object,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Report summarises one run. It is informational only: the run itself
// never fails, so callers wanting to detect partial failure inspect Failures.
type Report struct {
	Target      string        `json:"target"`
	Dry         bool          `json:"dry_run"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Removed     []Entry       `json:"removed"`
	Skipped     []Entry       `json:"skipped"`
	Failures    []Failure     `json:"failures"`
	Duration    time.Duration `json:"duration"`
}

// OK reports whether the run finished without any logged failure
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// HasKind reports whether any failure is of the given kind
func (r Report) HasKind(kind string) bool {
	for _, f := range r.Failures {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
