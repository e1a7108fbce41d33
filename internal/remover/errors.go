package remover

import (
	"errors"
	"fmt"
	"io/fs"

	"treeprune/internal/matcher"
)

// ErrMissingEntry is the condition swallowed silently during a walk: the entry
// vanished between listing and use, or never existed
var ErrMissingEntry = fs.ErrNotExist

// ErrBlocked marks a removal refused by the safety guard
var ErrBlocked = errors.New("removal blocked")

// Failure kinds, used as report values and metric labels
const (
	KindConfig          = "config"
	KindNotEmpty        = "not_empty"
	KindBlocked         = "blocked"
	KindInvalidArgument = "invalid_argument"
	KindIO              = "io"
)

// ConfigError reports a malformed includes or excludes option
type ConfigError struct {
	Option string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bad '%s' option, please provide a pattern or a set of patterns: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotEmptyError reports a directory that was eligible for removal but still
// had entries after its children were processed
type NotEmptyError struct {
	Path      string
	Remaining int
}

func (e *NotEmptyError) Error() string {
	return fmt.Sprintf("can't remove %s, directory not empty (%d entries left)", e.Path, e.Remaining)
}

// Kind classifies an error reported by the walk
func Kind(err error) string {
	var cfgErr *ConfigError
	var notEmpty *NotEmptyError
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &notEmpty):
		return KindNotEmpty
	case errors.Is(err, ErrBlocked):
		return KindBlocked
	case errors.Is(err, matcher.ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindIO
	}
}

// IsMissing reports whether err is the silently tolerated missing-entry condition
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingEntry)
}
