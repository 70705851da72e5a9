package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/huskrun/husk/pkg/logging"
)

func TestBoundaryExitCodes(t *testing.T) {
	color.NoColor = true
	logging.Reset()

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStderr string
	}{
		{
			name:     "success",
			err:      nil,
			wantCode: ExitSuccess,
		},
		{
			name:     "no arguments after help",
			err:      errNoArguments,
			wantCode: ExitFailure,
		},
		{
			name:       "usage error",
			err:        &UsageError{Command: "ping", Message: "unknown flag: --frob"},
			wantCode:   ExitUsage,
			wantStderr: "Run 'tool help ping' for usage.",
		},
		{
			name:       "usage error without command",
			err:        &UsageError{Message: `unknown command "frobnicate" for "tool"`},
			wantCode:   ExitUsage,
			wantStderr: "Run 'tool help' for usage.",
		},
		{
			name:       "unknown help topic",
			err:        &UnknownCommandError{Prog: "tool", Name: "bogus"},
			wantCode:   ExitFailure,
			wantStderr: `"bogus" is not a tool command`,
		},
		{
			name:       "fatal",
			err:        Fatalf("the image %q is not available", "dev"),
			wantCode:   ExitFailure,
			wantStderr: `the image "dev" is not available`,
		},
		{
			name:     "exit passthrough",
			err:      &ExitError{Code: 7},
			wantCode: 7,
		},
		{
			name:       "interrupted",
			err:        context.Canceled,
			wantCode:   ExitFailure,
			wantStderr: "Interrupted.",
		},
		{
			name:       "wrapped interruption",
			err:        fmt.Errorf("waiting for the environment: %w", context.Canceled),
			wantCode:   ExitFailure,
			wantStderr: "Interrupted.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := &bytes.Buffer{}
			b := NewBoundary("tool", stderr)

			if got := b.ExitCode(tt.err); got != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.wantCode)
			}
			if tt.wantStderr == "" {
				if stderr.Len() != 0 {
					t.Errorf("unexpected stderr output: %q", stderr.String())
				}
			} else if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr %q missing %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestBoundaryExitPassthroughIsSilent(t *testing.T) {
	color.NoColor = true
	stderr := &bytes.Buffer{}
	b := NewBoundary("tool", stderr)

	if got := b.ExitCode(&ExitError{Code: 3}); got != 3 {
		t.Fatalf("ExitCode = %d, want 3", got)
	}
	if stderr.Len() != 0 {
		t.Errorf("exit passthrough wrote to stderr: %q", stderr.String())
	}
}

func TestBoundaryInternalErrorQuiet(t *testing.T) {
	color.NoColor = true
	logging.Reset()

	stderr := &bytes.Buffer{}
	b := NewBoundary("tool", stderr)

	err := fmt.Errorf("reading state: %w", errors.New("permission denied"))
	if got := b.ExitCode(err); got != ExitFailure {
		t.Fatalf("ExitCode = %d, want %d", got, ExitFailure)
	}

	out := stderr.String()
	want := `Internal error! Got exception: "reading state: permission denied".`
	if !strings.Contains(out, want) {
		t.Errorf("stderr %q missing %q", out, want)
	}
	if lines := strings.Count(strings.TrimRight(out, "\n"), "\n") + 1; lines != 1 {
		t.Errorf("quiet internal error printed %d lines, want 1:\n%s", lines, out)
	}
}

func TestBoundaryInternalErrorVerbose(t *testing.T) {
	color.NoColor = true
	logging.Reset()
	logging.SetVerbose(true)
	defer logging.Reset()

	stderr := &bytes.Buffer{}
	b := NewBoundary("tool", stderr)

	err := fmt.Errorf("reading state: %w", errors.New("permission denied"))
	if got := b.ExitCode(err); got != ExitFailure {
		t.Fatalf("ExitCode = %d, want %d", got, ExitFailure)
	}

	out := stderr.String()
	if !strings.Contains(out, "caused by:") {
		t.Errorf("verbose internal error missing the cause chain:\n%s", out)
	}
	if !strings.Contains(out, "permission denied") {
		t.Errorf("verbose internal error missing the root cause:\n%s", out)
	}
}

func TestBoundaryInterruptionIsNotInternal(t *testing.T) {
	color.NoColor = true
	logging.Reset()

	stderr := &bytes.Buffer{}
	b := NewBoundary("tool", stderr)

	b.ExitCode(fmt.Errorf("running command: %w", context.Canceled))
	if strings.Contains(stderr.String(), "Internal error") {
		t.Errorf("interruption reported as an internal error:\n%s", stderr.String())
	}
}
