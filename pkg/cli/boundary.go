package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/huskrun/husk/pkg/logging"
)

// Boundary is the top-level fault supervisor. It maps every way an
// invocation can end onto exactly one exit code and its presentation, so no
// other code decides how failures look.
type Boundary struct {
	prog   string
	stderr io.Writer
}

// NewBoundary returns a boundary writing to stderr.
func NewBoundary(prog string, stderr io.Writer) *Boundary {
	return &Boundary{prog: prog, stderr: stderr}
}

// ExitCode classifies err, prints what the classification calls for, and
// returns the process exit code. Callers must exit with exactly this code
// and nothing else.
func (b *Boundary) ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, errNoArguments) {
		// Help already went to stdout.
		return ExitFailure
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(b.stderr)
		fmt.Fprintln(b.stderr, "Interrupted.")
		return ExitFailure
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		b.printError(usageErr.Message)
		if usageErr.Command != "" {
			fmt.Fprintf(b.stderr, "Run '%s help %s' for usage.\n", b.prog, usageErr.Command)
		} else {
			fmt.Fprintf(b.stderr, "Run '%s help' for usage.\n", b.prog)
		}
		return ExitUsage
	}

	var unknownErr *UnknownCommandError
	if errors.As(err, &unknownErr) {
		b.printError(unknownErr.Error())
		return ExitFailure
	}

	var fatalErr *FatalError
	if errors.As(err, &fatalErr) {
		b.printError(fatalErr.Message)
		return ExitFailure
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return b.internal(err)
}

// internal handles unexpected failures. End users get a single sanitized
// line; with verbose logging on, the full cause chain is emitted instead.
func (b *Boundary) internal(err error) int {
	b.printError(fmt.Sprintf("Internal error! Got exception: \"%v\".", err))
	if logging.IsVerbose() {
		for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
			fmt.Fprintf(b.stderr, "  caused by: %v\n", cause)
		}
	}
	return ExitFailure
}

func (b *Boundary) printError(msg string) {
	fmt.Fprintln(b.stderr, color.RedString(msg))
}
