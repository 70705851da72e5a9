// Package image manages the lifecycle of a husk container: starting it,
// running commands inside it, tracking what runs there, stopping it, and
// building its image from the definition file.
//
// Expected failures (image not built, directory not shared, lock contention)
// come back as cli.FatalError so the process boundary prints them cleanly;
// anything else is an internal error.
package image

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huskrun/husk/internal/dockerfile"
	"github.com/huskrun/husk/pkg/cli"
	"github.com/huskrun/husk/pkg/engine"
	"github.com/huskrun/husk/pkg/imagedef"
	"github.com/huskrun/husk/pkg/logging"
)

// CDMode selects how Exec picks the working directory in the container.
type CDMode int

const (
	// CDAlways mirrors the host working directory and fails when it is not
	// shared with the container.
	CDAlways CDMode = iota
	// CDNever uses the container user's home directory.
	CDNever
	// CDAuto mirrors the host working directory when shared, otherwise
	// falls back to the user's home.
	CDAuto
)

// Runtime is the container engine surface the image lifecycle needs. It is
// implemented by *engine.Client.
type Runtime interface {
	Run(args ...string) (string, error)
	Output(args ...string) (string, error)
	Call(ctx context.Context, args ...string) (int, error)
	RunWithProgress(ctx context.Context, imageName string, args ...string) error
	IsContainerRunning(id string) (bool, error)
}

// Image binds an image name to its definition, the runtime driving it, and
// the data directory holding its runtime state (container ID, start lock,
// command tracking, build staging).
type Image struct {
	name     string
	def      *imagedef.Definition
	runtime  Runtime
	dataDir  string
	hostname string
}

// New prepares the image's data directory and returns the Image.
func New(name string, def *imagedef.Definition, runtime Runtime, dataDir string) (*Image, error) {
	safe := SafeName(name)
	if safe == "" {
		return nil, fmt.Errorf("image name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create the image data directory: %w", err)
	}
	return &Image{
		name:     safe,
		def:      def,
		runtime:  runtime,
		dataDir:  dataDir,
		hostname: SafeHostname(def.Hostname),
	}, nil
}

// Name returns the sanitized image name.
func (img *Image) Name() string {
	return img.name
}

func (img *Image) containerIDPath() string {
	return filepath.Join(img.dataDir, "running-container-id")
}

// storedContainerID reads the last started container's ID, or "" when none
// was recorded.
func (img *Image) storedContainerID() string {
	data, err := os.ReadFile(img.containerIDPath())
	if err != nil {
		logging.Verbosef("No stored container ID at %q.", img.containerIDPath())
		return ""
	}
	id := strings.TrimSpace(string(data))
	logging.Verbosef("The stored container ID is <%s>.", id)
	return id
}

// EnsureRunning starts the container unless it is already running. The
// start sequence runs under a per-image file lock, so concurrent husk
// processes end up sharing one container instead of racing to start two.
func (img *Image) EnsureRunning(ctx context.Context) error {
	logging.Verbosef("Ensuring the container for image %q is running.", img.name)

	lockPath := filepath.Join(img.dataDir, "start.lock")
	lock, err := acquireLock(ctx, lockPath, lockOptions{
		onWait: func() { logging.Infof("Waiting for the container to start.") },
	})
	if errors.Is(err, ErrLockTimeout) {
		return cli.Fatalf("Cannot acquire the container lock for image %q at %q.", img.name, lockPath)
	}
	if err != nil {
		return err
	}
	defer lock.release()

	if id := img.storedContainerID(); id != "" {
		running, err := img.runtime.IsContainerRunning(id)
		if err != nil {
			return err
		}
		if running {
			logging.Verbosef("Container with ID <%s> already running.", id)
			return nil
		}
	}

	logging.Verbosef("No container running, starting a new one.")
	id, err := img.startContainer()
	if err != nil {
		return err
	}
	if err := os.WriteFile(img.containerIDPath(), []byte(id), 0o644); err != nil {
		return fmt.Errorf("failed to store the container ID: %w", err)
	}
	return nil
}

// startContainer starts a detached container for the image and returns its
// ID. The container idles on sleep so exec sessions can come and go.
func (img *Image) startContainer() (string, error) {
	out, err := img.runtime.Output("images", "-q", img.name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", cli.Fatalf("The container image %q is not available. Try building it with %q first.", img.name, "build")
	}

	args := []string{
		"run",
		"--detach",
		"-it",
		"--privileged",
		"--hostname", img.hostname,
	}
	for _, share := range img.def.Shares {
		args = append(args, "-v", share.Host+":"+share.Container)
	}
	args = append(args,
		"--label", LabelManagedBy+"=husk",
		"--label", LabelImage+"="+img.name,
		img.name,
		"sleep", "infinity",
	)

	out, err = img.runtime.Output(args...)
	if err != nil {
		return "", cli.Fatalf("Failed to start the container: %v", err)
	}
	id := strings.TrimSpace(out)
	logging.Verbosef("Started container with ID <%s>.", id)
	return id, nil
}

// Exec runs cmdArgs inside the running container, inheriting stdio, and
// returns the command's exit code. The working directory follows cd.
func (img *Image) Exec(ctx context.Context, cmdArgs []string, cd CDMode) (int, error) {
	id := img.storedContainerID()
	if id == "" {
		return 0, cli.Fatalf("The container for image %q is not running.", img.name)
	}

	dir, err := img.containerWorkdir(cd)
	if err != nil {
		return 0, err
	}

	args := []string{"exec"}
	args = append(args, engine.TTYFlags()...)
	args = append(args, "-w", dir, id)
	args = append(args, cmdArgs...)

	tracking, err := registerCommand(img.dataDir, os.Getpid(), cmdArgs)
	if err != nil {
		return 0, err
	}
	defer unregisterCommand(tracking)

	return img.runtime.Call(ctx, args...)
}

// containerWorkdir resolves the exec working directory for the given mode.
func (img *Image) containerWorkdir(cd CDMode) (string, error) {
	if cd == CDNever {
		logging.Verbosef("Using the home directory as working directory (as requested).")
		return img.def.UserHome, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve the current directory: %w", err)
	}

	if dir, ok := img.hostToContainerDir(cwd); ok {
		logging.Verbosef("Using %q as working directory in the container.", dir)
		return dir, nil
	}
	if cd == CDAuto {
		logging.Verbosef("Using the home directory as working directory as %q is not accessible.", cwd)
		return img.def.UserHome, nil
	}
	return "", cli.Fatalf("Host directory %q cannot be accessed in the container.", cwd)
}

// hostToContainerDir maps a host directory to the container path it is
// shared at. Later share entries take precedence over earlier ones.
func (img *Image) hostToContainerDir(hostDir string) (string, bool) {
	hostDir = normalizeDir(hostDir)

	for i := len(img.def.Shares) - 1; i >= 0; i-- {
		host := normalizeDir(img.def.Shares[i].Host)
		container := normalizeDir(img.def.Shares[i].Container)
		if !strings.HasPrefix(hostDir, host) {
			continue
		}
		mapped := strings.TrimSuffix(container+strings.TrimPrefix(hostDir, host), "/")
		if mapped == "" {
			mapped = "/"
		}
		return mapped, true
	}
	return "", false
}

// normalizeDir makes prefix matching treat "/a/b" and "/a/bc" as the
// distinct directories they are.
func normalizeDir(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// Status returns the running container's ID and the tracked commands. An
// empty ID means the container is not running.
func (img *Image) Status() (string, map[int][]string, error) {
	id := img.storedContainerID()
	if id == "" {
		return "", nil, nil
	}

	running, err := img.runtime.IsContainerRunning(id)
	if err != nil {
		return "", nil, err
	}
	if !running {
		logging.Verbosef("Container <%s> stored, but it's not running.", id)
		return "", nil, nil
	}

	commands, err := runningCommands(img.dataDir)
	if err != nil {
		return "", nil, err
	}
	return id, commands, nil
}

// WriteStatus prints the human-readable status report to w.
func (img *Image) WriteStatus(w io.Writer) error {
	id, commands, err := img.Status()
	if err != nil {
		return err
	}

	if id == "" {
		fmt.Fprintf(w, "The container for image %q is not running.\n", img.name)
		return nil
	}
	fmt.Fprintf(w, "The container for image %q is running with ID <%s>.\n", img.name, id)
	if len(commands) == 0 {
		fmt.Fprintln(w, "No commands are running.")
		return nil
	}
	writeRunningCommands(w, commands)
	return nil
}

// WriteStatusJSON prints the machine-readable status report to w.
func (img *Image) WriteStatusJSON(w io.Writer) error {
	id, commands, err := img.Status()
	if err != nil {
		return err
	}

	status := map[string]interface{}{"running": id != ""}
	if id != "" {
		status["container-id"] = id
		status["commands"] = commands
	}

	data, err := json.MarshalIndent(status, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal the status: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeRunningCommands lists tracked commands, one line per host PID.
func writeRunningCommands(w io.Writer, commands map[int][]string) {
	fmt.Fprintln(w, "These commands are still running:")

	pids := make([]int, 0, len(commands))
	for pid := range commands {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		// Just for printing, it doesn't need to be perfect.
		escaped := make([]string, len(commands[pid]))
		for i, arg := range commands[pid] {
			escaped[i] = strings.ReplaceAll(arg, " ", `\ `)
		}
		fmt.Fprintf(w, " - %d: %s\n", pid, strings.Join(escaped, " "))
	}
}

// Stop stops the container. When commands are still tracked and force is
// false, it lists them on out and asks on in before stopping anything.
func (img *Image) Stop(force bool, in io.Reader, out io.Writer) error {
	id, commands, err := img.Status()
	if err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintf(out, "The container for image %q is not running.\n", img.name)
		return nil
	}

	// Racy by nature, but good enough to catch a forgotten terminal still
	// running something in the container.
	if len(commands) > 0 && !force {
		writeRunningCommands(out, commands)
		fmt.Fprintln(out)
		if !confirmStop(in, out) {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Not stopping the container <%s> with running commands.\n", id)
			return nil
		}
	}

	return img.forceStop(id)
}

// confirmStop asks until the user answers y or n. EOF counts as no.
func confirmStop(in io.Reader, out io.Writer) bool {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Do you really want to stop the container? [Y/N] ")
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y":
			return true
		case "n":
			return false
		}
	}
}

// forceStop stops the container regardless of tracked commands. A failed
// stop command is only logged; what matters is whether the container is
// still alive afterwards.
func (img *Image) forceStop(id string) error {
	logging.Verbosef("Stopping container <%s>.", id)

	if _, err := img.runtime.Run("stop", id); err != nil {
		logging.Verbosef("The stop command failed: %v", err)
	}

	running, err := img.runtime.IsContainerRunning(id)
	if err != nil {
		return err
	}
	if running {
		return cli.Fatalf("Container <%s> still running.", id)
	}

	if err := os.Remove(img.containerIDPath()); err != nil {
		logging.Verbosef("Cannot delete running container ID file at %q: %v", img.containerIDPath(), err)
	}
	return nil
}

// Build generates the Dockerfile from the definition and (re)builds the
// image, staging the build context in a fresh directory under the image's
// data directory.
func (img *Image) Build(ctx context.Context) error {
	base := filepath.Join(img.dataDir, "builder")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("failed to create the builder directory: %w", err)
	}
	dir, err := os.MkdirTemp(base, img.name+"-")
	if err != nil {
		return fmt.Errorf("failed to create the build directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Verbosef("Cannot clean up the build directory %q: %v", dir, err)
		}
	}()

	content := dockerfile.Generate(img.def)
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write the Dockerfile: %w", err)
	}

	if err := img.runtime.RunWithProgress(ctx, img.name, "build", "--tag", img.name, dir); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return cli.Fatalf("Failed to build the image %q.", img.name)
	}
	return nil
}
