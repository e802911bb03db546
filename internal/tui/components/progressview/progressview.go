// Package progressview shows a long-running job: spinner, title, a progress
// bar and the current stage label.
package progressview

import (
	"strings"

	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a static bar; callers push the percentage with SetProgress.
type Model struct {
	Spinner spinner.Model
	Title   string
	Help    string

	bar     progress.Model
	percent int
	stage   string
}

// New creates a progress view using spinner s.
func New(s spinner.Spinner, title, help string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner: sp,
		Title:   title,
		Help:    help,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

// Init starts the spinner.
func (pv Model) Init() tea.Cmd {
	return pv.Spinner.Tick
}

// Update handles spinner tick messages.
func (pv Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		pv.Spinner, cmd = pv.Spinner.Update(tickMsg)

		return pv, cmd
	}

	return pv, nil
}

// SetProgress records the latest checkpoint. Percent is clamped to 0..100.
func (pv *Model) SetProgress(percent int, stage string) {
	pv.percent = min(max(percent, 0), 100)
	pv.stage = stage
}

func (pv Model) Percent() int  { return pv.percent }
func (pv Model) Stage() string { return pv.stage }

func (pv Model) View() string {
	var sb strings.Builder

	sb.WriteString(pv.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(pv.Title))
	sb.WriteString("\n\n")

	sb.WriteString(pv.bar.ViewAs(float64(pv.percent) / 100))
	sb.WriteString("\n")

	if pv.stage != "" {
		sb.WriteString(style.Subtitle.Render(pv.stage))
		sb.WriteString("\n")
	}

	if pv.Help != "" {
		sb.WriteString("\n")
		sb.WriteString(style.Help.Render(pv.Help))
	}

	return sb.String()
}
