package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Parser assembles the cobra grammar for a finalized registry and owns the
// presentation overrides: the no-arguments help path, usage-error
// classification, and help rendering for the program or a single command.
type Parser struct {
	prog     string
	registry *Registry
	root     *cobra.Command
	stdout   io.Writer
	stderr   io.Writer

	ctx    context.Context
	result *Invocation
}

// NewParser builds the grammar for prog. The registry must be finalized:
// commands registered after this point are not part of the grammar.
func NewParser(prog, summary, description string, reg *Registry, stdout, stderr io.Writer) *Parser {
	// Keep the help listing in registration order.
	cobra.EnableCommandSorting = false

	p := &Parser{
		prog:     prog,
		registry: reg,
		stdout:   stdout,
		stderr:   stderr,
	}

	root := &cobra.Command{
		Use:                        prog,
		Short:                      summary,
		Long:                       description,
		Args:                       cobra.ArbitraryArgs,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// No subcommand given: the full help goes to stdout and the
				// process exits 1, without a generic usage-error line.
				_ = cmd.Help()
				return errNoArguments
			}
			return p.unknownCommand(args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		name := ""
		if cmd != root {
			name = cmd.Name()
		}
		return &UsageError{Command: name, Message: err.Error()}
	})

	for _, spec := range reg.Commands() {
		p.bind(spec)
		root.AddCommand(spec.cmd)
	}
	if help, ok := reg.Lookup("help"); ok {
		root.SetHelpCommand(help.cmd)
	}

	p.root = root
	return p
}

// Parse translates argv into an Invocation. A nil Invocation with a nil
// error means the grammar engine completed the request itself (--help).
func (p *Parser) Parse(ctx context.Context, args []string) (*Invocation, error) {
	p.ctx = ctx
	p.result = nil
	p.resetValues()

	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	p.root.SetArgs(args)
	if err := p.root.ExecuteContext(ctx); err != nil {
		return nil, err
	}
	return p.result, nil
}

// Help writes the full program help.
func (p *Parser) Help() error {
	return p.root.Help()
}

// CommandHelp writes one command's help, or reports an unknown command.
func (p *Parser) CommandHelp(name string) error {
	spec, ok := p.registry.Lookup(name)
	if !ok {
		return &UnknownCommandError{Prog: p.prog, Name: name}
	}
	return spec.cmd.Help()
}

// bind installs the parse shim on a spec's grammar node. The shim validates
// positional arity and records the Invocation; the handler runs later, once
// the dispatcher has configured verbosity.
func (p *Parser) bind(spec *CommandSpec) {
	s := spec
	s.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		inv, err := p.newInvocation(s, args)
		if err != nil {
			return err
		}
		p.result = inv
		return nil
	}
}

// newInvocation snapshots a command's parsed state into an immutable value.
func (p *Parser) newInvocation(spec *CommandSpec, args []string) (*Invocation, error) {
	inv := &Invocation{
		Command: spec.Name,
		ctx:     p.ctx,
		stdout:  p.stdout,
		stderr:  p.stderr,
		values:  make(map[string]argValue, len(spec.values)),
	}

	switch spec.Positional {
	case PositionalNone:
		if len(args) > 0 {
			return nil, Usagef(spec.Name, "unknown argument %q for %q",
				args[0], p.prog+" "+spec.Name)
		}
	case PositionalOptional:
		if len(args) > 1 {
			return nil, Usagef(spec.Name, "accepts at most 1 argument, received %d", len(args))
		}
		if len(args) == 1 {
			inv.Arg = args[0]
		}
	case PositionalRemainder:
		inv.Remainder = args
	}

	for dest, v := range spec.values {
		inv.values[dest] = *v
	}
	inv.Verbose = inv.values[VerboseDest].b
	return inv, nil
}

// unknownCommand reports an unmatched top-level name as a usage error, with
// suggestions when close matches exist. This mirrors the grammar engine's
// own message but carries an explicit kind.
func (p *Parser) unknownCommand(name string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "unknown command %q for %q", name, p.prog)
	if suggestions := p.root.SuggestionsFor(name); len(suggestions) > 0 {
		b.WriteString("\n\nDid you mean this?\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "\t%s\n", s)
		}
	}
	return &UsageError{Message: b.String()}
}

// resetValues restores every command's flag storage to defaults so parses
// never observe a previous invocation's state.
func (p *Parser) resetValues() {
	for _, spec := range p.registry.Commands() {
		for _, v := range spec.values {
			*v = argValue{}
		}
	}
}
