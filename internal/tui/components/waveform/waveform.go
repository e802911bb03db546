// Package waveform draws the live input level of a recording as a bar chart.
package waveform

import (
	"math"
	"strings"

	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Eighth-block glyphs, empty to full.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

// FrameMsg redraws the waveform. The recording session's render loop
// produces one per frame; there is no internal timer.
type FrameMsg struct{}

// Model renders the newest samples from a Levels source, oldest on the left.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
	frames int
	dimmed bool
}

// New creates a waveform width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); ok {
		m.frames++
	}

	return m, nil
}

// SetDimmed renders the bars muted, e.g. while paused.
func (m *Model) SetDimmed(dimmed bool) { m.dimmed = dimmed }

// Frames is the number of frames received.
func (m Model) Frames() int { return m.frames }

func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.baseline()
	}

	heights := m.columnHeights(samples)
	barStyle := style.Progress
	if m.dimmed {
		barStyle = style.Muted
	}

	rows := make([]string, m.height)
	for row := range rows {
		floor := (m.height - 1 - row) * 8

		var sb strings.Builder
		for _, h := range heights {
			sb.WriteRune(blocks[min(max(h-floor, 0), 8)])
		}

		rows[row] = barStyle.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for row := range rows {
		fill := " "
		if row == m.height-1 {
			fill = "▁"
		}
		rows[row] = style.Muted.Render(strings.Repeat(fill, m.width))
	}

	return strings.Join(rows, "\n")
}

// columnHeights buckets samples into one peak per column, scaled to eighths
// of the total height. The square root keeps quiet speech visible.
func (m Model) columnHeights(samples []int16) []int {
	heights := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)
	top := m.height * 8

	for col := range heights {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		peak := peakAmplitude(samples[start:min(start+bucket, len(samples))])
		heights[col] = min(int(math.Sqrt(peak/math.MaxInt16)*float64(top)), top)
	}

	return heights
}

func peakAmplitude(samples []int16) float64 {
	var peak float64
	for _, s := range samples {
		peak = max(peak, math.Abs(float64(s)))
	}

	return min(peak, math.MaxInt16)
}
