package cli

import (
	"errors"
	"fmt"
)

// Process exit codes produced by the fault boundary.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// errNoArguments marks the invoked-with-no-subcommand path. The full help
// has already been written to stdout; only the exit code remains.
var errNoArguments = errors.New("no command given")

// UsageError is malformed command-line input for a known grammar: an
// unknown flag, a bad positional count, or an unknown top-level command.
type UsageError struct {
	Command string // subcommand being parsed, empty at top level
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// Usagef builds a UsageError for the given subcommand.
func Usagef(command, format string, args ...interface{}) *UsageError {
	return &UsageError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// UnknownCommandError reports a name that is not in the registry, e.g. from
// "help bogus". It is a user error, presented without any trace.
type UnknownCommandError struct {
	Prog string
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("%q is not a %s command. Try %q to list the available commands.",
		e.Name, e.Prog, e.Prog+" help")
}

// FatalError is a clean, user-facing failure from a handler: the message is
// printed as-is and the process exits 1. Unexpected failures should be
// returned as ordinary errors instead so the boundary reports them as
// internal.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return e.Message
}

// Fatalf builds a FatalError.
func Fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}

// ExitError propagates the exit status of a command that ran inside the
// container. The boundary exits with exactly that code, printing nothing.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
