package main

import (
	"errors"

	"wsrestore/internal/app"
	"wsrestore/internal/restore"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitFailure      = 1
	exitUsage        = 2
	exitSnapshot     = 3
	exitDatabase     = 4
	exitExistingData = 5
)

// cliError carries the exit code for err.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &cliError{code: code, err: err}
}

func usageError(err error) error {
	return withCode(exitUsage, err)
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	if errors.Is(err, restore.ErrExistingData) {
		return exitExistingData
	}
	switch app.StageOf(err) {
	case app.StageSnapshot:
		return exitSnapshot
	case app.StageDatabase:
		return exitDatabase
	}
	return exitFailure
}
