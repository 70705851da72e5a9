package progress

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tracker aggregates the runtime's pull and build output into an overall
// completion fraction and a short status line. Pull output arrives as JSON
// with per-layer byte counts; build output is plain text, so only coarse
// phases are reported for it.
type Tracker struct {
	image   string
	status  string
	layers  map[string]*layerProgress
	current int64
	total   int64
}

type layerProgress struct {
	current int64
	total   int64
	done    bool
}

// pullMessage is one line of the runtime's JSON pull progress.
type pullMessage struct {
	Status         string `json:"status"`
	ID             string `json:"id"`
	ProgressDetail struct {
		Current int64 `json:"current"`
		Total   int64 `json:"total"`
	} `json:"progressDetail"`
}

// NewTracker returns a tracker for one operation on the named image.
func NewTracker(image string) *Tracker {
	return &Tracker{
		image:  image,
		status: "starting",
		layers: make(map[string]*layerProgress),
	}
}

// ParseLine consumes one output line and returns the updated progress.
func (t *Tracker) ParseLine(line string) (float64, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return t.progress()
	}

	var msg pullMessage
	if err := json.Unmarshal([]byte(line), &msg); err == nil {
		t.updateStatus(msg.Status)
		if msg.ID != "" {
			t.updateLayer(msg)
		}
		return t.progress()
	}

	t.parseBuildLine(line)
	return t.progress()
}

// Done reports whether the tracked operation has finished.
func (t *Tracker) Done() bool {
	return t.status == "complete" || t.status == "cached"
}

// parseBuildLine scans plain build output for phase keywords. Builds report
// no byte counts, so this is as precise as it gets.
func (t *Tracker) parseBuildLine(line string) {
	line = strings.ToLower(line)
	switch {
	case strings.Contains(line, "sending build context"):
		t.status = "preparing"
	case strings.Contains(line, "successfully built"),
		strings.Contains(line, "writing image"):
		t.status = "complete"
	case strings.Contains(line, "error") || strings.Contains(line, "failed"):
		t.status = "error"
	case strings.Contains(line, "building") || strings.Contains(line, "step"),
		strings.HasPrefix(line, "#"):
		t.status = "building"
	}
}

func (t *Tracker) updateStatus(status string) {
	switch {
	case strings.Contains(status, "Pulling from"):
		t.status = "pulling"
	case strings.Contains(status, "Downloading"):
		t.status = "downloading"
	case strings.Contains(status, "Extracting"):
		t.status = "extracting"
	case strings.Contains(status, "Pull complete"):
		t.status = "complete"
	case strings.Contains(status, "Already exists"):
		t.status = "cached"
	}
}

func (t *Tracker) updateLayer(msg pullMessage) {
	layer, ok := t.layers[msg.ID]
	if !ok {
		layer = &layerProgress{}
		t.layers[msg.ID] = layer
	}

	if msg.ProgressDetail.Total > 0 {
		// Replace the layer's old contribution to the totals.
		t.total += msg.ProgressDetail.Total - layer.total
		t.current += msg.ProgressDetail.Current - layer.current
		layer.current = msg.ProgressDetail.Current
		layer.total = msg.ProgressDetail.Total
	}

	if strings.Contains(msg.Status, "complete") || strings.Contains(msg.Status, "Already exists") {
		layer.done = true
		if layer.total > 0 && layer.current < layer.total {
			t.current += layer.total - layer.current
			layer.current = layer.total
		}
	}
}

// progress reduces the tracked state to a fraction and a status line.
func (t *Tracker) progress() (float64, string) {
	if t.total == 0 {
		// No byte counts yet. Builds never report any; map the phase to a
		// rough fraction instead.
		switch t.status {
		case "complete":
			return 1.0, fmt.Sprintf("complete %s", t.image)
		case "cached":
			return 1.0, fmt.Sprintf("using cached %s", t.image)
		case "building":
			return 0.5, fmt.Sprintf("building %s", t.image)
		case "preparing":
			return 0.1, fmt.Sprintf("preparing %s", t.image)
		default:
			return 0.0, fmt.Sprintf("%s %s", t.status, t.image)
		}
	}

	fraction := float64(t.current) / float64(t.total)
	if fraction > 1.0 {
		fraction = 1.0
	}
	status := fmt.Sprintf("%s %s (%s/%s)",
		t.status, t.image, formatBytes(t.current), formatBytes(t.total))
	return fraction, status
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	format := "%.1f%cB"
	if n/div >= 10 {
		format = "%.0f%cB"
	}
	return fmt.Sprintf(format, float64(n)/float64(div), "KMGTPE"[exp])
}
