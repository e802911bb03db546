// Package phases hosts one bubbletea model per wizard step and moves between
// them as the wizard allows.
package phases

import (
	"github.com/alkime/saywhat/internal/wizard"
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg asks the container to advance to the next step.
type NextPhaseMsg struct{}

// PrevPhaseMsg asks the container to go back one step.
type PrevPhaseMsg struct{}

// ResetMsg asks the container to start the flow over.
type ResetMsg struct{}

// NextPhaseCmd emits NextPhaseMsg.
func NextPhaseCmd() tea.Msg { return NextPhaseMsg{} }

// PrevPhaseCmd emits PrevPhaseMsg.
func PrevPhaseCmd() tea.Msg { return PrevPhaseMsg{} }

// ResetCmd emits ResetMsg.
func ResetCmd() tea.Msg { return ResetMsg{} }

// Typer is implemented by phases that currently capture free text, so global
// single-letter shortcuts must not fire.
type Typer interface {
	Typing() bool
}

// Factory builds a fresh model each time its step is entered.
type Factory func() tea.Model

type Phase struct {
	Name    string
	factory Factory
	mdl     tea.Model
}

func NewPhase(name string, factory Factory) Phase {
	return Phase{
		Name:    name,
		factory: factory,
	}
}

func (p Phase) enter() (Phase, tea.Cmd) {
	p.mdl = p.factory()
	return p, p.mdl.Init()
}

func (p Phase) Update(msg tea.Msg) (Phase, tea.Cmd) {
	if p.mdl == nil {
		return p, nil
	}

	updatedMdl, cmd := p.mdl.Update(msg)
	p.mdl = updatedMdl
	return p, cmd
}

func (p Phase) View() string {
	if p.mdl == nil {
		return ""
	}

	return p.mdl.View()
}

// Model is the phases container. phases[i] is shown while the wizard is on
// step i+1; the wizard decides whether a move is allowed.
type Model struct {
	wiz    *wizard.Wizard
	phases []Phase
}

// New binds one phase per wizard step, in step order.
func New(wiz *wizard.Wizard, phases []Phase) Model {
	if len(phases) != wizard.NumSteps {
		panic("phases: need exactly one phase per wizard step")
	}

	return Model{
		wiz:    wiz,
		phases: phases,
	}
}

func (m Model) currentPhase() Phase {
	return m.phases[m.wiz.Step()-1]
}

func (m Model) enterCurrent() (Model, tea.Cmd) {
	ph, cmd := m.currentPhase().enter()
	m.phases[m.wiz.Step()-1] = ph

	return m, cmd
}

// Init enters the wizard's current step. The phases slice is shared between
// copies of Model, so the entered model is kept.
func (m Model) Init() tea.Cmd {
	_, cmd := m.enterCurrent()

	return cmd
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg.(type) {
	case NextPhaseMsg:
		if !m.wiz.CanAdvance() {
			return m, nil
		}
		m.wiz.Advance()
		return m.enterCurrent()

	case PrevPhaseMsg:
		if m.wiz.Step() == wizard.StepMethod {
			return m, nil
		}
		m.wiz.Retreat()
		return m.enterCurrent()

	case ResetMsg:
		m.wiz.Reset()
		return m.enterCurrent()
	}

	ph, cmd := m.currentPhase().Update(teaMsg)
	m.phases[m.wiz.Step()-1] = ph

	return m, cmd
}

func (m Model) View() string {
	return m.currentPhase().View()
}

// CurrentPhaseName returns the name of the current phase.
func (m Model) CurrentPhaseName() string {
	return m.currentPhase().Name
}

// Typing reports whether the current phase is capturing free text.
func (m Model) Typing() bool {
	t, ok := m.currentPhase().mdl.(Typer)
	return ok && t.Typing()
}
