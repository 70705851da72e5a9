package cli

import (
	"context"
	"fmt"

	"github.com/huskrun/husk/pkg/logging"
)

// Dispatcher runs one invocation end to end: parse, configure verbosity,
// resolve the handler, invoke it. It performs no business logic itself.
type Dispatcher struct {
	parser   *Parser
	registry *Registry
}

// NewDispatcher wires a finalized parser and registry.
func NewDispatcher(p *Parser, reg *Registry) *Dispatcher {
	return &Dispatcher{parser: p, registry: reg}
}

// Run parses args and invokes the resolved handler. Verbosity is configured
// before the handler runs so every diagnostic it emits honors the flag.
func (d *Dispatcher) Run(ctx context.Context, args []string) error {
	inv, err := d.parser.Parse(ctx, args)
	if err != nil {
		return err
	}
	if inv == nil {
		// The grammar engine completed the request itself (--help).
		return nil
	}

	logging.SetVerbose(inv.Verbose)
	return d.dispatch(inv)
}

func (d *Dispatcher) dispatch(inv *Invocation) error {
	spec, ok := d.registry.Lookup(inv.Command)
	if !ok {
		// The grammar only produces registered names, so this is a
		// programming error, not a user error.
		return fmt.Errorf("invalid command %q: this should not happen", inv.Command)
	}
	if spec.Handler == nil {
		return fmt.Errorf("command %q has no handler", inv.Command)
	}
	return spec.Handler(inv)
}
