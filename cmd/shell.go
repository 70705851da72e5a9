package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerShell(reg *cli.Registry) {
	spec := reg.MustRegister(&cli.CommandSpec{
		Name:        "shell",
		Help:        "start a shell in the container",
		Description: "Starts an interactive shell inside the container (starting it if necessary).",
		Handler:     runShell,
	})
	spec.Attach(cdArgs...)
}

func runShell(inv *cli.Invocation) error {
	img, err := openImage()
	if err != nil {
		return err
	}
	if err := img.EnsureRunning(inv.Context()); err != nil {
		return err
	}

	code, err := img.Exec(inv.Context(), []string{"bash", "-i"}, cdMode(inv))
	if err != nil {
		return err
	}
	if code != 0 {
		return &cli.ExitError{Code: code}
	}
	return nil
}
