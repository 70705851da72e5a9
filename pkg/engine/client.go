// Package engine wraps the container runtime CLI (docker or podman) behind
// the small client the image lifecycle drives.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/huskrun/husk/pkg/logging"
	"github.com/huskrun/husk/pkg/progress"
)

// Client runs container operations through the runtime CLI.
type Client struct {
	cmd string
}

// New returns a client for the preferred runtime command, or for the first
// runtime found on PATH when preferred is empty. The DOCKER_CMD environment
// variable overrides both.
func New(preferred string) (*Client, error) {
	cmd, err := detectCLI(preferred)
	if err != nil {
		return nil, err
	}
	return &Client{cmd: cmd}, nil
}

// detectCLI finds the container CLI command to use.
func detectCLI(preferred string) (string, error) {
	if envCmd := os.Getenv("DOCKER_CMD"); envCmd != "" {
		if _, err := exec.LookPath(envCmd); err != nil {
			return "", fmt.Errorf("DOCKER_CMD=%s not found in PATH", envCmd)
		}
		return envCmd, nil
	}

	if preferred != "" {
		if _, err := exec.LookPath(preferred); err != nil {
			return "", fmt.Errorf("container runtime %q not found in PATH", preferred)
		}
		return preferred, nil
	}

	for _, runtime := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(runtime); err == nil {
			return runtime, nil
		}
	}
	return "", fmt.Errorf("no container runtime found (tried: docker, podman)")
}

// Command returns the runtime CLI command in use.
func (c *Client) Command() string {
	return c.cmd
}

// echo logs the command line at verbose level before it runs.
func (c *Client) echo(args []string) {
	logging.Verbosef("+ %s %s", c.cmd, strings.Join(args, " "))
}

// Run executes a runtime command and returns its combined output.
func (c *Client) Run(args ...string) (string, error) {
	c.echo(args)

	output, err := exec.Command(c.cmd, args...).CombinedOutput()
	if len(output) > 0 {
		logging.Verbosef("%s", strings.TrimRight(string(output), "\n"))
	}
	return string(output), err
}

// Output executes a runtime command and returns its standard output. On
// failure the error carries whatever the command wrote to stderr.
func (c *Client) Output(args ...string) (string, error) {
	c.echo(args)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(c.cmd, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("%s %s: %s", c.cmd, args[0], msg)
		}
		return stdout.String(), fmt.Errorf("%s %s: %w", c.cmd, args[0], err)
	}
	return stdout.String(), nil
}

// Call executes a runtime command wired to the process's own stdio and
// returns the command's exit code. A cancelled context kills the command and
// surfaces the context's error.
func (c *Client) Call(ctx context.Context, args ...string) (int, error) {
	c.echo(args)

	cmd := exec.CommandContext(ctx, c.cmd, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("failed to run %s: %w", c.cmd, err)
}

// IsContainerRunning reports whether a container with the given ID is
// currently running.
func (c *Client) IsContainerRunning(id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	out, err := c.Output("ps", "-q", "--no-trunc", "--filter", "id="+id)
	if err != nil {
		return false, fmt.Errorf("failed to query running containers: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// TTYFlags returns the interactivity flags for exec-style commands: "-it"
// when stdin is a terminal, "-i" when it is not.
func TTYFlags() []string {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return []string{"-it"}
	}
	return []string{"-i"}
}

// RunWithProgress executes a long build or pull, rendering its output as a
// single-line progress bar. Verbose logging shows the raw output instead.
func (c *Client) RunWithProgress(ctx context.Context, imageName string, args ...string) error {
	if len(args) > 0 {
		switch args[0] {
		case "pull":
			args = append(args, "--progress=json")
		case "build":
			args = append(args, "--progress=plain")
		}
	}

	c.echo(args)
	cmd := exec.CommandContext(ctx, c.cmd, args...)

	// Builds report progress on stderr, pulls on stdout. The other stream
	// is collected for the failure message.
	var progressPipe, restPipe io.ReadCloser
	var err error
	if len(args) > 0 && args[0] == "build" {
		progressPipe, err = cmd.StderrPipe()
		if err == nil {
			restPipe, err = cmd.StdoutPipe()
		}
	} else {
		progressPipe, err = cmd.StdoutPipe()
		if err == nil {
			restPipe, err = cmd.StderrPipe()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to pipe %s output: %w", c.cmd, err)
	}

	rest := make(chan string, 1)
	go func() {
		var lines []string
		scanner := bufio.NewScanner(restPipe)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		rest <- strings.Join(lines, "\n")
	}()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.cmd, err)
	}

	tracker := progress.NewTracker(imageName)
	bar := progress.NewBar(os.Stderr, 80)

	var lastFraction float64
	var lastStatus string
	var tail []string
	lastUpdate := time.Now()

	scanner := bufio.NewScanner(progressPipe)
	for scanner.Scan() {
		line := scanner.Text()

		// Keep the end of the stream around: build failures report their
		// cause here, not on the collected stream.
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[1:]
		}

		if logging.IsVerbose() {
			logging.Verbosef("%s", line)
			continue
		}

		fraction, status := tracker.ParseLine(line)
		now := time.Now()
		changed := fraction != lastFraction || status != lastStatus
		if bar.IsTerminal() && (changed || tracker.Done()) && now.Sub(lastUpdate) > 100*time.Millisecond {
			bar.Update(fraction, status)
			lastFraction, lastStatus, lastUpdate = fraction, status, now
		}
	}

	// Both pipes are drained before Wait closes them.
	restOut := <-rest
	err = cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		detail := restOut
		if strings.TrimSpace(detail) == "" {
			detail = strings.Join(tail, "\n")
		}
		bar.Fail(fmt.Errorf("%w\n%s output:\n%s", err, c.cmd, detail))
		return fmt.Errorf("%s %s failed: %w", c.cmd, args[0], err)
	}

	_, status := tracker.ParseLine("")
	if status == "" {
		status = fmt.Sprintf("completed %s", imageName)
	}
	bar.Complete(status)
	return nil
}
