package cmd

import (
	"os"

	"github.com/huskrun/husk/pkg/cli"
)

func registerStop(reg *cli.Registry) {
	spec := reg.MustRegister(&cli.CommandSpec{
		Name:        "stop",
		Help:        "stop the container if running",
		Description: "Stops the container. If already not running does nothing.",
		Handler:     runStop,
	})
	spec.Attach(&cli.ArgSpec{
		Flags:  []string{"--force"},
		Dest:   "force",
		Action: cli.ActionStoreTrue,
		Help:   "stop the container even when commands are still running in it",
	})
}

func runStop(inv *cli.Invocation) error {
	img, err := openImage()
	if err != nil {
		return err
	}
	// The confirmation prompt reads the real stdin: it is a question for
	// the human, not part of the command's own input stream.
	return img.Stop(inv.Bool("force"), os.Stdin, inv.Stdout())
}
