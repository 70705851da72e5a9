// Package cmd wires the husk command line: one file per subcommand, with
// the shared bootstrap, the image plumbing, and the process boundary here.
package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/huskrun/husk/pkg/cli"
	"github.com/huskrun/husk/pkg/config"
	"github.com/huskrun/husk/pkg/engine"
	"github.com/huskrun/husk/pkg/image"
	"github.com/huskrun/husk/pkg/imagedef"
)

const prog = "husk"

const summary = "Manages semi-persistent development containers."

const description = `husk manages semi-persistent containers: long-lived development
environments you can run commands in, step into with a shell, and rebuild
from a definition file.

Configuration:
  Config file:  ~/.config/husk/config.json
  Definitions:  husk.toml in each image's definition directory
  State:        ~/.local/share/husk/<image>/`

// cdArgs is the working-directory flag group shared by run and shell. Both
// flags write to the same destination, so the last one given wins.
var cdArgs = []*cli.ArgSpec{
	{
		Flags:  []string{"--no-cd"},
		Dest:   "cd",
		Action: cli.ActionStoreConst,
		Const:  "no",
		Help:   "don't change the current directory in the container",
	},
	{
		Flags:  []string{"--auto-cd"},
		Dest:   "cd",
		Action: cli.ActionStoreConst,
		Const:  "auto",
		Help:   "change the current directory in the container only if it's available in both container and host",
	},
}

// verboseArg goes on every command, attached after all registrations.
var verboseArg = &cli.ArgSpec{
	Flags:  []string{"-v", "--verbose"},
	Dest:   cli.VerboseDest,
	Action: cli.ActionStoreTrue,
	Help:   "enable verbose logging",
}

// app is one assembled husk command line.
type app struct {
	registry   *cli.Registry
	parser     *cli.Parser
	dispatcher *cli.Dispatcher
}

// newApp registers every subcommand in help order, freezes the grammar, and
// wires the dispatcher.
func newApp(stdout, stderr io.Writer) *app {
	reg := cli.NewRegistry()

	registerRun(reg)
	registerShell(reg)
	registerStart(reg)
	registerStop(reg)
	registerStatus(reg)
	registerBuild(reg)
	helpSpec := registerHelp(reg)

	reg.AddToAll(verboseArg)

	parser := cli.NewParser(prog, summary, description, reg, stdout, stderr)
	bindHelp(helpSpec, parser)

	return &app{
		registry:   reg,
		parser:     parser,
		dispatcher: cli.NewDispatcher(parser, reg),
	}
}

// Main runs husk and returns the process exit code. The caller performs the
// one and only os.Exit.
func Main(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(stdout, stderr)
	boundary := cli.NewBoundary(prog, stderr)
	return boundary.ExitCode(a.dispatcher.Run(ctx, args))
}

// openImage loads the configuration and assembles the default image with
// its definition and runtime.
func openImage() (*image.Image, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNotConfigured) {
		return nil, cli.Fatalf("husk is not configured yet. Run a husk command from an interactive terminal to set it up, or create %q yourself.", config.Path())
	}
	if err != nil {
		return nil, err
	}

	name := cfg.DefaultImage
	if name == "" {
		return nil, cli.Fatalf("No default image is configured in %q.", config.Path())
	}
	dir, ok := cfg.DefinitionDir(name)
	if !ok {
		return nil, cli.Fatalf("The image %q has no definition directory in %q.", name, config.Path())
	}

	def, err := imagedef.Load(dir, name)
	if err != nil {
		return nil, cli.Fatalf("%v", err)
	}

	eng, err := engine.New(cfg.ContainerRuntime)
	if err != nil {
		return nil, cli.Fatalf("%v", err)
	}

	return image.New(name, def, eng, filepath.Join(config.DataDir(), name))
}

// cdMode maps the run/shell working-directory flags onto the exec mode.
func cdMode(inv *cli.Invocation) image.CDMode {
	switch inv.String("cd") {
	case "no":
		return image.CDNever
	case "auto":
		return image.CDAuto
	default:
		return image.CDAlways
	}
}
