package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Action is what parsing a flag does to its destination.
type Action int

const (
	// ActionStoreTrue stores true in the destination when the flag is given.
	ActionStoreTrue Action = iota
	// ActionStoreConst stores the spec's Const string in the destination.
	// Several flags may share one destination, e.g. --no-cd and --auto-cd
	// both writing to "cd".
	ActionStoreConst
)

// ArgSpec is an immutable description of one command-line option that can be
// attached to any number of commands. Each attachment gets its own parse
// storage; only the destination key semantics are shared.
type ArgSpec struct {
	Flags  []string // e.g. {"-v", "--verbose"} or {"--no-cd"}
	Dest   string
	Action Action
	Const  string
	Help   string
}

// applyTo registers the option on the command's flag set, backed by that
// command's own value storage.
func (a *ArgSpec) applyTo(spec *CommandSpec) {
	name, shorthand := a.flagNames()
	v := spec.value(a.Dest)

	var fv pflag.Value
	switch a.Action {
	case ActionStoreConst:
		fv = &constFlag{v: v, c: a.Const}
	default:
		fv = &boolFlag{v: v}
	}

	f := spec.cmd.Flags().VarPF(fv, name, shorthand, a.Help)
	f.NoOptDefVal = "true"
}

// flagNames splits the spec's flags into the pflag name and shorthand. The
// first long flag names the option; a single-dash single-letter flag becomes
// the shorthand.
func (a *ArgSpec) flagNames() (name, shorthand string) {
	for _, flag := range a.Flags {
		switch {
		case strings.HasPrefix(flag, "--"):
			if name == "" {
				name = strings.TrimPrefix(flag, "--")
			}
		case strings.HasPrefix(flag, "-"):
			if shorthand == "" && len(flag) == 2 {
				shorthand = strings.TrimPrefix(flag, "-")
			}
		}
	}
	if name == "" {
		name = shorthand
	}
	return name, shorthand
}

// argValue is the per-command storage one destination key parses into.
type argValue struct {
	b bool
	s string
}

// boolFlag implements store-true on top of pflag's value-less bool syntax.
type boolFlag struct {
	v *argValue
}

func (f *boolFlag) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	f.v.b = on
	return nil
}

func (f *boolFlag) Type() string { return "bool" }

func (f *boolFlag) String() string { return strconv.FormatBool(f.v.b) }

// constFlag implements store-const: giving the flag writes the constant to
// the shared destination.
type constFlag struct {
	v *argValue
	c string
}

func (f *constFlag) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		f.v.s = f.c
	}
	return nil
}

func (f *constFlag) Type() string { return "bool" }

func (f *constFlag) String() string { return "false" }
