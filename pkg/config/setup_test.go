package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/huskrun/husk/pkg/imagedef"
)

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runeMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSetupModel_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m := newSetupModel()
	if m.imageName() != "dev" {
		t.Errorf("imageName() = %q, want %q", m.imageName(), "dev")
	}

	cfg := m.config()
	if cfg.DefaultImage != "dev" {
		t.Errorf("DefaultImage = %q, want %q", cfg.DefaultImage, "dev")
	}
	wantDir := filepath.Join(filepath.Dir(Path()), "images", "dev")
	if cfg.Images["dev"] != wantDir {
		t.Errorf("Images[dev] = %q, want %q", cfg.Images["dev"], wantDir)
	}
	if cfg.ContainerRuntime == "" {
		t.Error("ContainerRuntime is empty")
	}
}

func TestSetupModel_CycleRuntime(t *testing.T) {
	m := newSetupModel()
	m.runtimes = []string{"docker", "podman"}
	m.runtimeIdx = 0

	m.cycleRuntime(1)
	if m.runtime() != "podman" {
		t.Errorf("after cycle forward: %q, want podman", m.runtime())
	}
	m.cycleRuntime(1)
	if m.runtime() != "docker" {
		t.Errorf("cycle did not wrap forward: %q", m.runtime())
	}
	m.cycleRuntime(-1)
	if m.runtime() != "podman" {
		t.Errorf("cycle did not wrap backward: %q", m.runtime())
	}
}

func TestSetupModel_FocusKeepsOneInputActive(t *testing.T) {
	m := newSetupModel()

	m.setFocus(focusName)
	if !m.nameInput.Focused() || m.dirInput.Focused() {
		t.Error("focusName should focus only the name input")
	}

	m.setFocus(focusDir)
	if m.nameInput.Focused() || !m.dirInput.Focused() {
		t.Error("focusDir should focus only the directory input")
	}

	m.setFocus(-1)
	if m.focus != focusCancel {
		t.Errorf("focus wrapped to %d, want %d", m.focus, focusCancel)
	}
	m.setFocus(focusCount)
	if m.focus != focusRuntime {
		t.Errorf("focus wrapped to %d, want %d", m.focus, focusRuntime)
	}
}

func TestSetupModel_UpdateNavigation(t *testing.T) {
	m := newSetupModel()
	m.setFocus(focusRuntime)

	m.Update(keyMsg(tea.KeyTab))
	if m.focus != focusName {
		t.Errorf("tab moved focus to %d, want %d", m.focus, focusName)
	}

	m.Update(keyMsg(tea.KeyShiftTab))
	if m.focus != focusRuntime {
		t.Errorf("shift+tab moved focus to %d, want %d", m.focus, focusRuntime)
	}

	// Enter on a field advances instead of submitting.
	m.Update(keyMsg(tea.KeyEnter))
	if m.focus != focusName {
		t.Errorf("enter moved focus to %d, want %d", m.focus, focusName)
	}
	if m.saved || m.quitting {
		t.Error("enter on a field must not save or quit")
	}
}

func TestSetupModel_SaveAndCancel(t *testing.T) {
	m := newSetupModel()
	m.setFocus(focusSave)
	_, cmd := m.Update(keyMsg(tea.KeyEnter))
	if !m.saved {
		t.Error("enter on save did not mark the form saved")
	}
	if cmd == nil {
		t.Fatal("enter on save returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("enter on save did not quit the program")
	}

	m = newSetupModel()
	_, cmd = m.Update(keyMsg(tea.KeyEsc))
	if m.saved || !m.quitting {
		t.Error("esc should cancel without saving")
	}
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not quit the program")
	}
}

func TestSetupModel_TypingReachesFocusedInput(t *testing.T) {
	m := newSetupModel()
	m.setFocus(focusName)

	m.Update(runeMsg("x"))
	if got := m.nameInput.Value(); got != "devx" {
		t.Errorf("name input = %q, want %q", got, "devx")
	}

	// Keys must not leak into the unfocused input.
	if strings.Contains(m.dirInput.Value(), "x") {
		t.Errorf("directory input changed: %q", m.dirInput.Value())
	}
}

func TestSetupModel_ConfigFromForm(t *testing.T) {
	m := newSetupModel()
	m.runtimes = []string{"podman"}
	m.runtimeIdx = 0
	m.nameInput.SetValue("work")
	m.dirInput.SetValue("/tmp/defs/work")

	cfg := m.config()
	if cfg.ContainerRuntime != "podman" {
		t.Errorf("ContainerRuntime = %q, want podman", cfg.ContainerRuntime)
	}
	if cfg.DefaultImage != "work" {
		t.Errorf("DefaultImage = %q, want work", cfg.DefaultImage)
	}
	if cfg.Images["work"] != "/tmp/defs/work" {
		t.Errorf("Images[work] = %q, want /tmp/defs/work", cfg.Images["work"])
	}
}

func TestSetupModel_ViewStates(t *testing.T) {
	m := newSetupModel()
	view := m.View()
	for _, want := range []string{"husk setup", "Container runtime", "Image name", "Definition directory"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q:\n%s", want, view)
		}
	}

	m.saved = true
	if !strings.Contains(m.View(), "Configuration saved") {
		t.Error("saved view is missing the confirmation")
	}

	m.saved = false
	m.quitting = true
	if !strings.Contains(m.View(), "Setup cancelled") {
		t.Error("cancelled view is missing the notice")
	}
}

func TestSeedDefinition(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images", "dev")
	cfg := &Config{
		DefaultImage: "dev",
		Images:       map[string]string{"dev": dir},
	}

	if err := seedDefinition(cfg); err != nil {
		t.Fatalf("seedDefinition() error = %v", err)
	}
	path := filepath.Join(dir, imagedef.FileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("starter definition not written: %v", err)
	}

	// A definition the user already edited must survive a re-run.
	if err := os.WriteFile(path, []byte("base = \"alpine:3.20\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := seedDefinition(cfg); err != nil {
		t.Fatalf("second seedDefinition() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "base = \"alpine:3.20\"\n" {
		t.Errorf("existing definition was overwritten:\n%s", data)
	}

	missing := &Config{DefaultImage: "dev", Images: map[string]string{}}
	if err := seedDefinition(missing); err == nil {
		t.Error("seedDefinition() succeeded without a definition directory")
	}
}
