package workflow

import (
	"strings"

	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
)

// navKeyMap is shared by the content and configure steps.
type navKeyMap struct {
	Back     key.Binding
	Continue key.Binding
}

func defaultNavKeyMap() navKeyMap {
	return navKeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Continue: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
	}
}

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

func renderKeysHelp(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled() {
			parts = append(parts, renderKeyHelp(b))
		}
	}

	return strings.Join(parts, " ")
}
