package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"treeprune/internal/exitcodes"
)

// exitError carries the process exit code alongside the error that caused it
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// flag and argument errors raised by cobra
	return exitcodes.InvalidConfig
}

func main() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitCode(err))
	}
}
