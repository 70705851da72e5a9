package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/huskrun/husk/pkg/logging"
)

// runningCommandPrefix prefixes the per-command tracking files in the image
// data directory. The suffix is the PID of the host husk process.
const runningCommandPrefix = "running-command-"

// registerCommand records a command execution so status can report it. The
// argv is stored NUL-joined; the returned path feeds unregisterCommand.
func registerCommand(dataDir string, pid int, args []string) (string, error) {
	for _, arg := range args {
		if strings.ContainsRune(arg, 0) {
			return "", fmt.Errorf("command argument %q contains a NUL byte", arg)
		}
	}

	path := filepath.Join(dataDir, fmt.Sprintf("%s%d", runningCommandPrefix, pid))
	logging.Verbosef("Registering execution in %q.", path)
	if err := os.WriteFile(path, []byte(strings.Join(args, "\x00")), 0o644); err != nil {
		return "", fmt.Errorf("failed to record the running command: %w", err)
	}
	return path, nil
}

// unregisterCommand removes a tracking file written by registerCommand.
func unregisterCommand(path string) {
	logging.Verbosef("Command finished, removing %q.", path)
	if err := os.Remove(path); err != nil {
		logging.Verbosef("Cannot remove running command file %q: %v", path, err)
	}
}

// runningCommands returns the commands currently tracked in dataDir, keyed
// by host PID. Files with a non-numeric suffix are ignored, concurrent
// deletion is tolerated, and entries whose process is gone are removed as
// crash leftovers.
func runningCommands(dataDir string) (map[int][]string, error) {
	paths, err := filepath.Glob(filepath.Join(dataDir, runningCommandPrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list running commands: %w", err)
	}

	commands := make(map[int][]string)
	for _, path := range paths {
		suffix := strings.TrimPrefix(filepath.Base(path), runningCommandPrefix)
		pid, err := strconv.Atoi(suffix)
		if err != nil {
			logging.Verbosef("Invalid running command file with non-numeric PID %q at %q; ignoring it.", suffix, path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			// The command finished while we were listing.
			continue
		}
		args := strings.Split(string(data), "\x00")

		if !pidRunning(pid) {
			logging.Verbosef("Program %q with PID %d is not running, but it's still marked as running. It probably crashed.", args[0], pid)
			if err := os.Remove(path); err != nil {
				logging.Verbosef("Cannot remove running command file %q for non-running command: %v", path, err)
			}
			continue
		}

		commands[pid] = args
	}
	return commands, nil
}

// pidRunning reports whether a process with the given PID exists. EPERM
// means the process exists but belongs to someone else.
func pidRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
