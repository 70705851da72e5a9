package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// VerboseDest is the destination key of the verbosity flag that the
// bootstrap attaches to every command.
const VerboseDest = "verbose"

// Positional describes how many positional arguments a command accepts.
type Positional int

const (
	// PositionalNone rejects positional arguments.
	PositionalNone Positional = iota
	// PositionalOptional accepts at most one positional argument.
	PositionalOptional
	// PositionalRemainder captures everything after the command name
	// verbatim; flag parsing stops at the first positional token.
	PositionalRemainder
)

// HandlerFunc is the operation behind a command. Handlers signal failure by
// returning an error; the fault boundary decides presentation and exit code.
type HandlerFunc func(*Invocation) error

// CommandSpec describes one subcommand: name, help texts, positional arity,
// and the handler the dispatcher will invoke. Specs are created during
// registry bootstrap and must be finalized before the first parse.
type CommandSpec struct {
	Name        string
	Help        string
	Description string
	Positional  Positional
	Handler     HandlerFunc

	cmd    *cobra.Command
	values map[string]*argValue
}

// Attach applies shared argument specs to this command.
func (cs *CommandSpec) Attach(args ...*ArgSpec) {
	for _, a := range args {
		a.applyTo(cs)
	}
}

// Flags exposes the command's flag set for options that are not shared
// argument specs.
func (cs *CommandSpec) Flags() *pflag.FlagSet {
	return cs.cmd.Flags()
}

// value returns the storage for a destination key, allocating it on first
// use. Flags on the same command sharing a destination share the storage;
// other commands get their own.
func (cs *CommandSpec) value(dest string) *argValue {
	if cs.values == nil {
		cs.values = make(map[string]*argValue)
	}
	v, ok := cs.values[dest]
	if !ok {
		v = &argValue{}
		cs.values[dest] = v
	}
	return v
}

// Invocation is the result of parsing one command line. It is created fresh
// per parse, is immutable afterward, and is consumed by exactly one handler.
type Invocation struct {
	Command   string
	Verbose   bool
	Arg       string   // the optional positional, empty when absent
	Remainder []string // captured remainder tokens

	ctx    context.Context
	values map[string]argValue
	stdout io.Writer
	stderr io.Writer
}

// Context carries cancellation from the outermost signal boundary.
func (inv *Invocation) Context() context.Context {
	if inv.ctx == nil {
		return context.Background()
	}
	return inv.ctx
}

// Stdout is where user-facing command output goes.
func (inv *Invocation) Stdout() io.Writer {
	return inv.stdout
}

// Stderr is where prompts and warnings go.
func (inv *Invocation) Stderr() io.Writer {
	return inv.stderr
}

// Bool returns the boolean parsed into a destination key.
func (inv *Invocation) Bool(dest string) bool {
	return inv.values[dest].b
}

// String returns the string parsed into a destination key, empty when no
// flag wrote to it.
func (inv *Invocation) String(dest string) string {
	return inv.values[dest].s
}
