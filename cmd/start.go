package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerStart(reg *cli.Registry) {
	reg.MustRegister(&cli.CommandSpec{
		Name: "start",
		Help: "if not running, start the container",
		Description: "Starts the container. If already running does nothing. " +
			"Usually you should not need to use this command as both \"run\" and \"shell\" " +
			"start the container automatically.",
		Handler: runStart,
	})
}

func runStart(inv *cli.Invocation) error {
	img, err := openImage()
	if err != nil {
		return err
	}
	return img.EnsureRunning(inv.Context())
}
