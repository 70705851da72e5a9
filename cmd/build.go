package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerBuild(reg *cli.Registry) {
	reg.MustRegister(&cli.CommandSpec{
		Name:        "build",
		Help:        "build the image for the container",
		Description: "Builds (or rebuilds) the image for the container from its definition file.",
		Handler:     runBuild,
	})
}

func runBuild(inv *cli.Invocation) error {
	img, err := openImage()
	if err != nil {
		return err
	}
	return img.Build(inv.Context())
}
