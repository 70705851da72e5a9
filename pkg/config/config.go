// Package config stores husk's global configuration and runs the first-run
// setup flow.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mattn/go-isatty"
)

// Config is husk's global configuration.
type Config struct {
	// ContainerRuntime is the CLI to drive: docker or podman. Empty means
	// autodetect.
	ContainerRuntime string `json:"container_runtime"`
	// DefaultImage is the image commands operate on.
	DefaultImage string `json:"default_image"`
	// Images maps image names to their definition directories.
	Images map[string]string `json:"images"`
}

// ErrNotConfigured reports that no configuration exists and the interactive
// setup could not run (or was cancelled).
var ErrNotConfigured = errors.New("husk is not configured")

// Path returns the config file location.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "husk", "config.json")
}

// DataDir returns the root directory for per-image state: container IDs,
// start locks, command tracking and build staging.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "husk")
}

// Load reads the configuration. On first use it runs the interactive setup,
// but only when connected to a terminal; otherwise it reports
// ErrNotConfigured so the caller can fail with clear instructions.
func Load() (*Config, error) {
	path := Path()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return firstRunSetup(path)
	}
	return loadFromFile(path)
}

// LoadExistingOrEmpty reads the configuration from path, or returns an
// empty configuration when the file does not exist.
func LoadExistingOrEmpty(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Config{Images: make(map[string]string)}, nil
	}
	return loadFromFile(path)
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if cfg.Images == nil {
		cfg.Images = make(map[string]string)
	}
	return &cfg, nil
}

// Save writes the configuration to path, creating the directory as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefinitionDir returns the definition directory configured for an image.
func (c *Config) DefinitionDir(name string) (string, bool) {
	dir, ok := c.Images[name]
	return dir, ok
}

// firstRunSetup runs the interactive form when stdin and stdout are
// terminals, then loads what it saved.
func firstRunSetup(path string) (*Config, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil, ErrNotConfigured
	}

	saved, err := runSetup(path)
	if err != nil {
		return nil, fmt.Errorf("interactive setup failed: %w", err)
	}
	if !saved {
		return nil, ErrNotConfigured
	}
	return loadFromFile(path)
}

// detectAvailableRuntimes finds which container runtimes are installed.
func detectAvailableRuntimes() []string {
	var available []string
	for _, runtime := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(runtime); err == nil {
			available = append(available, runtime)
		}
	}
	if len(available) == 0 {
		// Nothing on PATH; offer docker anyway so the form can complete.
		available = []string{"docker"}
	}
	return available
}
