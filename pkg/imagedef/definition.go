// Package imagedef loads and validates husk image definitions.
//
// A definition lives in a husk.toml file inside the image's definition
// directory and describes the base image, the packages baked into it, and
// the host directories shared with the container.
package imagedef

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the definition file looked up inside a definition directory.
const FileName = "husk.toml"

// Share maps one host directory into the container at a fixed path. Later
// shares take precedence when resolving working directories.
type Share struct {
	Host      string `toml:"host"`
	Container string `toml:"container"`
}

// Definition describes how one image is built and run.
type Definition struct {
	// Base is the image the Dockerfile starts FROM. Required.
	Base string `toml:"base"`
	// Hostname inside the container. Defaults to the image name.
	Hostname string `toml:"hostname"`
	// UserHome is the home directory of the container user and the
	// fallback working directory. Defaults to /root.
	UserHome string `toml:"user_home"`
	// Packages are installed into the image at build time.
	Packages []string `toml:"packages"`
	// ExtraLines are appended verbatim to the generated Dockerfile.
	ExtraLines []string `toml:"extra_lines"`
	// Shares are the host directories visible inside the container.
	Shares []Share `toml:"share"`
}

// Load reads the definition for an image from dir, applying defaults and
// validating the result.
func Load(dir, imageName string) (*Definition, error) {
	path := filepath.Join(dir, FileName)

	var def Definition
	meta, err := toml.DecodeFile(path, &def)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no image definition found at %q", path)
		}
		return nil, fmt.Errorf("cannot parse the image definition %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in the image definition %q", undecoded[0].String(), path)
	}

	def.applyDefaults(imageName)
	if err := def.validate(); err != nil {
		return nil, fmt.Errorf("invalid image definition %q: %w", path, err)
	}
	return &def, nil
}

func (d *Definition) applyDefaults(imageName string) {
	if d.Hostname == "" {
		d.Hostname = imageName
	}
	if d.UserHome == "" {
		d.UserHome = "/root"
	}
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Base) == "" {
		return errors.New("a base image is required")
	}
	if !filepath.IsAbs(d.UserHome) {
		return fmt.Errorf("user_home %q is not an absolute path", d.UserHome)
	}
	for _, share := range d.Shares {
		if share.Host == "" || share.Container == "" {
			return errors.New("a share needs both a host and a container path")
		}
		if !filepath.IsAbs(share.Host) {
			return fmt.Errorf("share host path %q is not absolute", share.Host)
		}
		if !filepath.IsAbs(share.Container) {
			return fmt.Errorf("share container path %q is not absolute", share.Container)
		}
	}
	return nil
}

// WriteDefault writes a starter definition for an image into dir. The
// starter shares the user's home directory with the container at the same
// path, so freshly configured setups can run commands from anywhere under
// it.
func WriteDefault(dir, imageName string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot resolve the home directory: %w", err)
	}

	content := fmt.Sprintf(`# husk image definition for %q.

# The image the container is built from.
base = "ubuntu:24.04"

# The hostname inside the container. Defaults to the image name.
#hostname = %q

# Packages installed into the image at build time.
packages = ["build-essential", "git"]

# Extra Dockerfile lines, appended verbatim.
#extra_lines = ["ENV LANG=C.UTF-8"]

# Host directories visible inside the container.
[[share]]
host = %q
container = %q
`, imageName, imageName, home, home)

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("cannot write %q: %w", path, err)
	}
	return nil
}
