package workflow

import (
	"fmt"
	"strings"

	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type methodSelectKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
}

func defaultMethodSelectKeyMap() methodSelectKeyMap {
	return methodSelectKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "choose"),
		),
	}
}

type methodSelectPhase struct {
	wiz     *wizard.Wizard
	methods []wizard.MethodInfo
	cursor  int
	keys    methodSelectKeyMap
}

// NewMethodSelect lists the flow's input methods. Choosing one records it and
// moves on.
func NewMethodSelect(wiz *wizard.Wizard) tea.Model {
	methods := wiz.Flow().Methods()
	infos := make([]wizard.MethodInfo, len(methods))
	cursor := 0

	for i, m := range methods {
		infos[i] = wiz.Flow().Describe(m)
		if m == wiz.State().InputMethod {
			cursor = i
		}
	}

	return &methodSelectPhase{
		wiz:     wiz,
		methods: infos,
		cursor:  cursor,
		keys:    defaultMethodSelectKeyMap(),
	}
}

func (ms *methodSelectPhase) Init() tea.Cmd { return nil }

func (ms *methodSelectPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := teaMsg.(tea.KeyMsg)
	if !ok {
		return ms, nil
	}

	switch {
	case key.Matches(keyMsg, ms.keys.Up):
		ms.cursor = (ms.cursor - 1 + len(ms.methods)) % len(ms.methods)
	case key.Matches(keyMsg, ms.keys.Down):
		ms.cursor = (ms.cursor + 1) % len(ms.methods)
	case key.Matches(keyMsg, ms.keys.Select):
		if err := ms.wiz.SelectMethod(ms.methods[ms.cursor].Method); err != nil {
			return ms, nil
		}

		return ms, phases.NextPhaseCmd
	}

	return ms, nil
}

func (ms *methodSelectPhase) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("How would you like to provide your content?"))
	sb.WriteString("\n\n")

	for i, info := range ms.methods {
		marker := "  "
		title := style.Label.Render(info.Title)
		if i == ms.cursor {
			marker = style.Cursor.Render("> ")
			title = style.Cursor.Render(info.Title)
		}

		fmt.Fprintf(&sb, "%s%s\n", marker, title)
		fmt.Fprintf(&sb, "  %s\n\n", style.Muted.Render(info.Description))
	}

	sb.WriteString(renderKeysHelp(ms.keys.Up, ms.keys.Down, ms.keys.Select))

	return sb.String()
}
