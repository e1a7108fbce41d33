package matcher

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidArgument = errors.New("invalid argument: path must be a non-empty string")
	ErrMalformed       = errors.New("malformed pattern set")
)

// Patterns is a set of compiled regular expressions matched against full paths.
// A single pattern is a one-element set; order never changes a match result.
type Patterns []*regexp.Regexp

// One wraps a single pattern into a set
func One(re *regexp.Regexp) Patterns {
	return Patterns{re}
}

// Compile builds a pattern set from regexp sources
func Compile(exprs ...string) (Patterns, error) {
	out := make(Patterns, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Normalize converts the loosely typed "one pattern or many" forms into Patterns.
// Accepted: nil, *regexp.Regexp, []*regexp.Regexp, Patterns, string, []string.
func Normalize(v any) (Patterns, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case *regexp.Regexp:
		return Patterns{p}.validated()
	case []*regexp.Regexp:
		return Patterns(p).validated()
	case Patterns:
		return p.validated()
	case string:
		return Compile(p)
	case []string:
		return Compile(p...)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformed, v)
	}
}

// Validate reports ErrMalformed if any element is nil
func (p Patterns) Validate() error {
	for i, re := range p {
		if re == nil {
			return fmt.Errorf("%w: element %d is not a compiled pattern", ErrMalformed, i)
		}
	}
	return nil
}

func (p Patterns) validated() (Patterns, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Any reports whether at least one pattern matches path
func (p Patterns) Any(path string) bool {
	for _, re := range p {
		if re != nil && re.MatchString(path) {
			return true
		}
	}
	return false
}

// Strings returns the pattern sources, mostly for logging
func (p Patterns) Strings() []string {
	out := make([]string, 0, len(p))
	for _, re := range p {
		if re != nil {
			out = append(out, re.String())
		}
	}
	return out
}

// CanRemove decides whether path is eligible for removal.
// Without includes every path is eligible; with includes at least one must match.
// A matching exclude always wins.
func CanRemove(path string, includes, excludes Patterns) (bool, error) {
	if path == "" {
		return false, ErrInvalidArgument
	}

	can := len(includes) == 0
	if !can {
		can = includes.Any(path)
	}
	if len(excludes) > 0 && excludes.Any(path) {
		can = false
	}
	return can, nil
}
