package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huskrun/husk/pkg/cli"
	"github.com/huskrun/husk/pkg/config"
	"github.com/huskrun/husk/pkg/logging"
)

// runMain invokes the real entrypoint with captured output. Verbosity is
// reset first since it latches per process.
func runMain(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	logging.Reset()

	var stdout, stderr bytes.Buffer
	code := Main(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// isolateConfig points the XDG directories at empty temp dirs so tests
// never see (or touch) a developer's real configuration.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestMainNoArgumentsShowsHelp(t *testing.T) {
	code, stdout, _ := runMain(t)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "Available Commands:") {
		t.Errorf("help not shown:\n%s", stdout)
	}

	// The command listing keeps registration order.
	names := []string{"\n  run ", "\n  shell ", "\n  start ", "\n  stop ", "\n  status ", "\n  build ", "\n  help "}
	last := -1
	for _, name := range names {
		idx := strings.Index(stdout, name)
		if idx == -1 {
			t.Fatalf("help is missing %q:\n%s", strings.TrimSpace(name), stdout)
		}
		if idx < last {
			t.Errorf("command %q listed out of order", strings.TrimSpace(name))
		}
		last = idx
	}
}

func TestMainHelpCommand(t *testing.T) {
	code, stdout, stderr := runMain(t, "help")
	if code != 0 {
		t.Errorf("exit code = %d, want 0 (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stdout, "Available Commands:") {
		t.Errorf("help output:\n%s", stdout)
	}
}

func TestMainHelpUnknownCommand(t *testing.T) {
	code, _, stderr := runMain(t, "help", "bogus")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	want := `"bogus" is not a husk command. Try "husk help" to list the available commands.`
	if !strings.Contains(stderr, want) {
		t.Errorf("stderr = %q, want it to contain %q", stderr, want)
	}
}

func TestMainPerCommandHelp(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"run", []string{"Runs a program or command inside the container", "--no-cd", "--auto-cd", "--verbose"}},
		{"shell", []string{"Starts an interactive shell", "--no-cd", "--auto-cd", "--verbose"}},
		{"start", []string{"Starts the container", "--verbose"}},
		{"stop", []string{"Stops the container", "--force", "--verbose"}},
		{"status", []string{"--json", "--verbose"}},
		{"build", []string{"Builds (or rebuilds) the image", "--verbose"}},
		{"help", []string{"Shows the documentation", "--verbose"}},
	}
	for _, tt := range tests {
		code, stdout, stderr := runMain(t, "help", tt.command)
		if code != 0 {
			t.Errorf("help %s: exit code = %d, want 0 (stderr: %s)", tt.command, code, stderr)
			continue
		}
		for _, want := range tt.want {
			if !strings.Contains(stdout, want) {
				t.Errorf("help %s is missing %q:\n%s", tt.command, want, stdout)
			}
		}
	}
}

func TestMainUnknownCommand(t *testing.T) {
	code, _, stderr := runMain(t, "bogus")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, `unknown command "bogus" for "husk"`) {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "Run 'husk help' for usage.") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMainUnknownCommandSuggests(t *testing.T) {
	_, _, stderr := runMain(t, "stat")
	if !strings.Contains(stderr, "Did you mean this?") || !strings.Contains(stderr, "status") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMainUnknownFlag(t *testing.T) {
	code, _, stderr := runMain(t, "status", "--frobnicate")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "unknown flag: --frobnicate") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "Run 'husk help status' for usage.") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMainCDFlagsOnlyOnRunAndShell(t *testing.T) {
	code, _, stderr := runMain(t, "start", "--no-cd")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "unknown flag: --no-cd") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMainRunWithoutCommand(t *testing.T) {
	code, _, stderr := runMain(t, "run")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "no command given to execute in the container") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "Run 'husk help run' for usage.") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestMainCommandsRequireConfiguration(t *testing.T) {
	// With no config file and no terminal, every container command must
	// fail cleanly instead of opening the setup form.
	isolateConfig(t)

	commands := [][]string{
		{"run", "true"},
		{"shell"},
		{"start"},
		{"stop"},
		{"status"},
		{"build"},
	}
	for _, args := range commands {
		code, _, stderr := runMain(t, args...)
		if code != 1 {
			t.Errorf("%v: exit code = %d, want 1", args, code)
		}
		if !strings.Contains(stderr, "husk is not configured yet") {
			t.Errorf("%v: stderr = %q", args, stderr)
		}
	}
}

func TestMainCorruptConfigIsInternalError(t *testing.T) {
	isolateConfig(t)
	path := config.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runMain(t, "status")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Internal error! Got exception:") {
		t.Errorf("stderr = %q", stderr)
	}
	if strings.Contains(stderr, "caused by:") {
		t.Errorf("quiet run leaked the cause chain: %q", stderr)
	}

	code, _, stderr = runMain(t, "status", "-v")
	if code != 1 {
		t.Errorf("verbose exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "caused by:") {
		t.Errorf("verbose run misses the cause chain: %q", stderr)
	}
}

func TestMainInterruptedCommand(t *testing.T) {
	logging.Reset()

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	spec, ok := a.registry.Lookup("start")
	if !ok {
		t.Fatal("start is not registered")
	}
	spec.Handler = func(inv *cli.Invocation) error {
		return context.Canceled
	}

	boundary := cli.NewBoundary(prog, &stderr)
	code := boundary.ExitCode(a.dispatcher.Run(context.Background(), []string{"start"}))
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Interrupted.") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
