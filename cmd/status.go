package cmd

import (
	"github.com/huskrun/husk/pkg/cli"
)

func registerStatus(reg *cli.Registry) {
	spec := reg.MustRegister(&cli.CommandSpec{
		Name:        "status",
		Help:        "query the status of the container",
		Description: "Prints information about the status of the container and the list of programs running in it.",
		Handler:     runStatus,
	})
	spec.Attach(&cli.ArgSpec{
		Flags:  []string{"--json"},
		Dest:   "json",
		Action: cli.ActionStoreTrue,
		Help:   "print the status as JSON",
	})
}

func runStatus(inv *cli.Invocation) error {
	img, err := openImage()
	if err != nil {
		return err
	}
	if inv.Bool("json") {
		return img.WriteStatusJSON(inv.Stdout())
	}
	return img.WriteStatus(inv.Stdout())
}
