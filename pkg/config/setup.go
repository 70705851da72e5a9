package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/huskrun/husk/pkg/imagedef"
)

var (
	setupTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	setupLabelStyle  = lipgloss.NewStyle().Width(22)
	setupFocusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	setupValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	setupHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	setupButtonStyle = lipgloss.NewStyle().Padding(0, 2)
)

const (
	focusRuntime = iota
	focusName
	focusDir
	focusSave
	focusCancel
	focusCount
)

// setupModel is the first-run configuration form: pick a runtime, name the
// default image and choose where its definition lives.
type setupModel struct {
	runtimes   []string
	runtimeIdx int
	nameInput  textinput.Model
	dirInput   textinput.Model
	focus      int
	saved      bool
	quitting   bool
}

func newSetupModel() *setupModel {
	name := textinput.New()
	name.Placeholder = "dev"
	name.SetValue("dev")
	name.CharLimit = 64
	name.Width = 24

	dir := textinput.New()
	dir.SetValue(defaultDefinitionDir("dev"))
	dir.Width = 48

	return &setupModel{
		runtimes:  detectAvailableRuntimes(),
		nameInput: name,
		dirInput:  dir,
	}
}

// defaultDefinitionDir is where the starter definition for an image goes.
func defaultDefinitionDir(name string) string {
	return filepath.Join(filepath.Dir(Path()), "images", name)
}

func (m *setupModel) runtime() string {
	return m.runtimes[m.runtimeIdx]
}

func (m *setupModel) cycleRuntime(step int) {
	m.runtimeIdx = (m.runtimeIdx + step + len(m.runtimes)) % len(m.runtimes)
}

// setFocus moves the focus and keeps exactly one text input active.
func (m *setupModel) setFocus(focus int) {
	m.focus = (focus + focusCount) % focusCount

	m.nameInput.Blur()
	m.dirInput.Blur()
	switch m.focus {
	case focusName:
		m.nameInput.Focus()
	case focusDir:
		m.dirInput.Focus()
	}
}

// imageName returns the form's image name, falling back to the default.
func (m *setupModel) imageName() string {
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" {
		name = "dev"
	}
	return name
}

// config returns the configuration the form describes.
func (m *setupModel) config() *Config {
	name := m.imageName()
	dir := strings.TrimSpace(m.dirInput.Value())
	if dir == "" {
		dir = defaultDefinitionDir(name)
	}
	return &Config{
		ContainerRuntime: m.runtime(),
		DefaultImage:     name,
		Images:           map[string]string{name: dir},
	}
}

// Init implements tea.Model.
func (m *setupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "shift+tab":
		m.setFocus(m.focus - 1)

	case "down", "tab":
		m.setFocus(m.focus + 1)

	case "left":
		switch m.focus {
		case focusRuntime:
			m.cycleRuntime(-1)
		case focusCancel:
			m.setFocus(focusSave)
		default:
			return m.updateInputs(msg)
		}

	case "right":
		switch m.focus {
		case focusRuntime:
			m.cycleRuntime(1)
		case focusSave:
			m.setFocus(focusCancel)
		default:
			return m.updateInputs(msg)
		}

	case "enter":
		switch m.focus {
		case focusSave:
			m.saved = true
			return m, tea.Quit
		case focusCancel:
			m.quitting = true
			return m, tea.Quit
		default:
			m.setFocus(m.focus + 1)
		}

	case " ":
		if m.focus == focusRuntime {
			m.cycleRuntime(1)
			return m, nil
		}
		return m.updateInputs(msg)

	default:
		return m.updateInputs(msg)
	}

	return m, nil
}

// updateInputs forwards a key to whichever text input has focus.
func (m *setupModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case focusDir:
		m.dirInput, cmd = m.dirInput.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m *setupModel) View() string {
	if m.quitting && !m.saved {
		return "Setup cancelled.\n"
	}
	if m.saved {
		return "✅ Configuration saved!\n"
	}

	var sb strings.Builder
	sb.WriteString(setupTitleStyle.Render("husk setup"))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderRuntimeRow())
	sb.WriteString(m.renderInputRow("Image name", m.nameInput, focusName))
	sb.WriteString(m.renderInputRow("Definition directory", m.dirInput, focusDir))

	sb.WriteString("\n")
	sb.WriteString(m.renderButtons())
	sb.WriteString("\n\n")
	sb.WriteString(setupHelpStyle.Render("↑/↓ move • ←/→ change runtime • enter next • esc cancel"))
	sb.WriteString("\n")
	return sb.String()
}

func (m *setupModel) renderRuntimeRow() string {
	label := setupLabelStyle.Render("Container runtime")
	cursor := "  "
	value := setupValueStyle.Render(m.runtime())
	if m.focus == focusRuntime {
		cursor = "> "
		label = setupFocusStyle.Width(22).Render("Container runtime")
		value = setupFocusStyle.Render("◂ " + m.runtime() + " ▸")
	}
	return fmt.Sprintf("%s%s %s\n", cursor, label, value)
}

func (m *setupModel) renderInputRow(title string, input textinput.Model, focus int) string {
	label := setupLabelStyle.Render(title)
	cursor := "  "
	if m.focus == focus {
		cursor = "> "
	}
	return fmt.Sprintf("%s%s %s\n", cursor, label, input.View())
}

func (m *setupModel) renderButtons() string {
	save := setupButtonStyle.Render("[ Save ]")
	cancel := setupButtonStyle.Render("[ Cancel ]")
	if m.focus == focusSave {
		save = setupButtonStyle.Background(lipgloss.Color("34")).Foreground(lipgloss.Color("15")).Render("[ Save ]")
	}
	if m.focus == focusCancel {
		cancel = setupButtonStyle.Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")).Render("[ Cancel ]")
	}
	return "  " + save + "  " + cancel
}

// runSetup shows the form and, when the user saves it, writes the config
// and seeds the image's definition directory with a starter husk.toml.
func runSetup(path string) (bool, error) {
	model := newSetupModel()
	model.setFocus(focusRuntime)

	program := tea.NewProgram(model)
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("setup form failed: %w", err)
	}

	m, ok := final.(*setupModel)
	if !ok || !m.saved {
		return false, nil
	}

	cfg := m.config()
	if err := Save(cfg, path); err != nil {
		return false, err
	}
	return true, seedDefinition(cfg)
}

// seedDefinition creates the default image's definition directory and a
// starter definition, unless one already exists there.
func seedDefinition(cfg *Config) error {
	dir, ok := cfg.DefinitionDir(cfg.DefaultImage)
	if !ok {
		return fmt.Errorf("no definition directory for image %q", cfg.DefaultImage)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create the definition directory: %w", err)
	}

	if _, err := os.Stat(filepath.Join(dir, imagedef.FileName)); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return imagedef.WriteDefault(dir, cfg.DefaultImage)
}
