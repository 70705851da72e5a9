// Package progress renders image build and pull progress on the terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	percentStyle = lipgloss.NewStyle().Bold(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// barCells is how many character cells the bar itself occupies.
const barCells = 20

// Bar is a single-line progress display. In-place updates happen only on a
// terminal; the completion and failure notices print regardless, so
// redirected output still records how the operation ended.
type Bar struct {
	w       io.Writer
	width   int
	tty     bool
	lastLen int
	visible bool
	started time.Time
}

// NewBar returns a bar writing to w, which defaults to stderr.
func NewBar(w io.Writer, width int) *Bar {
	if w == nil {
		w = os.Stderr
	}
	b := &Bar{w: w, width: width, started: time.Now()}
	if f, ok := w.(*os.File); ok {
		b.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return b
}

// IsTerminal reports whether the writer supports in-place updates.
func (b *Bar) IsTerminal() bool {
	return b.tty
}

// Update redraws the bar at the given completion fraction.
func (b *Bar) Update(fraction float64, status string) {
	if !b.tty {
		return
	}
	b.clearLine()

	line := b.render(fraction, status)
	fmt.Fprint(b.w, "\r"+line)
	b.lastLen = lipgloss.Width(line)
	b.visible = true
}

// Complete replaces the bar with a completion notice.
func (b *Bar) Complete(status string) {
	b.erase()
	fmt.Fprintf(b.w, "✅ %s (%v)\n", status, time.Since(b.started).Round(time.Millisecond))
}

// Fail replaces the bar with the failure detail.
func (b *Bar) Fail(err error) {
	b.erase()
	fmt.Fprintf(b.w, "❌ Error: %v\n", err)
}

func (b *Bar) render(fraction float64, status string) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * barCells)
	if filled > barCells {
		filled = barCells
	}
	bar := barStyle.Render(strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled))
	percent := percentStyle.Render(fmt.Sprintf("%3.0f%%", fraction*100))

	// The bar and the percentage take barCells plus 7 cells of the line.
	room := b.width - barCells - 7
	if room > 3 && len(status) > room {
		status = status[:room-3] + "..."
	}
	return bar + " " + percent + " " + statusStyle.Render(status)
}

// erase removes a visible bar so a notice can take over the line.
func (b *Bar) erase() {
	if !b.visible {
		return
	}
	b.clearLine()
	b.visible = false
}

func (b *Bar) clearLine() {
	if b.lastLen == 0 {
		return
	}
	fmt.Fprint(b.w, "\r"+strings.Repeat(" ", b.lastLen)+"\r")
}
