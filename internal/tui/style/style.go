// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Names omit a "Style" suffix; callers read style.Title, style.Error, etc.
var (
	// Title is used for the app banner and step headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text under a header.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// StepActive marks the current step in the step indicator.
	StepActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Panel frames result sections and text entry areas.
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key highlights the key inside a shortcut hint.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Progress colors the waveform bars.
	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label is used for inline labels (e.g., "Language:", "Saved:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for de-emphasized text such as file paths and counts.
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Cursor marks the highlighted row in a list.
	Cursor = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205"))

	// UserMessage and AssistantMessage color the Q&A transcript.
	UserMessage = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
	AssistantMessage = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)
