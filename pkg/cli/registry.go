package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Registry is an ordered collection of command specs. Registration order is
// help-listing order.
type Registry struct {
	order    []*CommandSpec
	commands map[string]*CommandSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*CommandSpec)}
}

// Register adds a command spec and builds its grammar node. Registering a
// name twice is an error.
func (r *Registry) Register(spec *CommandSpec) (*CommandSpec, error) {
	if spec.Name == "" {
		return nil, errors.New("command name must not be empty")
	}
	if _, exists := r.commands[spec.Name]; exists {
		return nil, fmt.Errorf("command %q already registered", spec.Name)
	}

	spec.cmd = newGrammarNode(spec)
	r.commands[spec.Name] = spec
	r.order = append(r.order, spec)
	return spec, nil
}

// MustRegister is Register for bootstrap code, where a duplicate name is a
// programming error.
func (r *Registry) MustRegister(spec *CommandSpec) *CommandSpec {
	s, err := r.Register(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// AddToAll attaches argument specs to every command registered so far.
// Commands registered afterward do not receive them, so shared-everywhere
// flags must be added last.
func (r *Registry) AddToAll(args ...*ArgSpec) {
	for _, spec := range r.order {
		spec.Attach(args...)
	}
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (*CommandSpec, bool) {
	spec, ok := r.commands[name]
	return spec, ok
}

// Commands returns the specs in registration order.
func (r *Registry) Commands() []*CommandSpec {
	return r.order
}

// newGrammarNode builds the cobra command for a spec. Positional validation
// happens in the parser shim so failures carry an explicit kind; cobra's own
// validators are bypassed.
func newGrammarNode(spec *CommandSpec) *cobra.Command {
	use := spec.Name
	switch spec.Positional {
	case PositionalRemainder:
		use += " [flags] COMMANDS..."
	case PositionalOptional:
		use += " [COMMAND]"
	}

	cmd := &cobra.Command{
		Use:           use,
		Short:         spec.Help,
		Long:          spec.Description,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if spec.Positional == PositionalRemainder {
		// Stop flag parsing at the first positional so the remainder passes
		// through uninterpreted.
		cmd.Flags().SetInterspersed(false)
	}
	return cmd
}
