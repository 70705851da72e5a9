package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerHelp(reg *cli.Registry) *cli.CommandSpec {
	return reg.MustRegister(&cli.CommandSpec{
		Name: "help",
		Help: "show the help message",
		Description: "Shows the documentation. If used with no argument, then the general " +
			"documentation is shown. Otherwise, when a command is specified as argument, " +
			"the documentation for that command is shown.",
		Positional: cli.PositionalOptional,
	})
}

// bindHelp installs the help handler after the parser exists, since help
// renders through it.
func bindHelp(spec *cli.CommandSpec, parser *cli.Parser) {
	spec.Handler = func(inv *cli.Invocation) error {
		if inv.Arg == "" {
			return parser.Help()
		}
		return parser.CommandHelp(inv.Arg)
	}
}
