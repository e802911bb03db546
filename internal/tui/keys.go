package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the global bindings handled before any phase sees a key.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	StartOver key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		StartOver: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "start over"),
		),
	}
}
