package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerRun(reg *cli.Registry) {
	spec := reg.MustRegister(&cli.CommandSpec{
		Name:        "run",
		Help:        "run a program in the container",
		Description: "Runs a program or command inside the container (starting it if necessary).",
		Positional:  cli.PositionalRemainder,
		Handler:     runRun,
	})
	spec.Attach(cdArgs...)
}

func runRun(inv *cli.Invocation) error {
	if len(inv.Remainder) == 0 {
		return cli.Usagef("run", "no command given to execute in the container")
	}

	img, err := openImage()
	if err != nil {
		return err
	}
	if err := img.EnsureRunning(inv.Context()); err != nil {
		return err
	}

	code, err := img.Exec(inv.Context(), inv.Remainder, cdMode(inv))
	if err != nil {
		return err
	}
	if code != 0 {
		return &cli.ExitError{Code: code}
	}
	return nil
}
