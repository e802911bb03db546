// Package tui is the terminal front end of the translation wizard.
package tui

import (
	"strings"

	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/components/stepindicator"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/tui/workflow"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type model struct {
	wiz    *wizard.Wizard
	keys   KeyMap
	phases phases.Model
}

// New creates the wizard UI for wiz. Quitting tears down every step's
// resources through the wizard.
func New(wiz *wizard.Wizard, deps workflow.Deps) tea.Model {
	return &model{
		wiz:  wiz,
		keys: DefaultKeyMap(),
		phases: phases.New(wiz, []phases.Phase{
			phases.NewPhase("Method", func() tea.Model { return workflow.NewMethodSelect(wiz) }),
			phases.NewPhase("Content", func() tea.Model { return workflow.NewContent(wiz, deps) }),
			phases.NewPhase("Configure", func() tea.Model { return workflow.NewConfigure(wiz) }),
			phases.NewPhase("Results", func() tea.Model { return workflow.NewResults(wiz, deps) }),
		}),
	}
}

func (m *model) Init() tea.Cmd {
	return m.phases.Init()
}

func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := teaMsg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.ForceQuit),
			key.Matches(km, m.keys.Quit) && !m.phases.Typing():
			m.wiz.Reset()

			return m, tea.Quit

		case key.Matches(km, m.keys.StartOver) && m.canStartOver():
			return m, phases.ResetCmd
		}
	}

	updatedPhases, cmd := m.phases.Update(teaMsg)
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return m, cmd
}

func (m *model) canStartOver() bool {
	step := m.wiz.Step()
	return step == wizard.StepContent || step == wizard.StepConfigure
}

func (m *model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("SayWhat"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(flowTitle(m.wiz.Flow())))
	sb.WriteString("\n")
	sb.WriteString(stepindicator.View(m.wiz.Step()))
	sb.WriteString("\n\n")

	sb.WriteString(m.phases.View())
	sb.WriteString("\n\n")

	help := []key.Binding{m.keys.Quit, m.keys.ForceQuit}
	if m.canStartOver() {
		help = append(help, m.keys.StartOver)
	}
	sb.WriteString(renderGlobalKeyHelp(help...))

	return sb.String()
}

func flowTitle(f wizard.Flow) string {
	if f == wizard.FlowAudio {
		return "Audio translation"
	}

	return "Text translation"
}

func renderGlobalKeyHelp(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, style.Help.Render("[")+style.Key.Render(b.Help().Key)+
			style.Help.Render("] ")+style.Help.Render(b.Help().Desc))
	}

	return strings.Join(parts, " ")
}
