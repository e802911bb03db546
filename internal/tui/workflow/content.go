package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// NewContent returns the capture model for the wizard's selected method.
func NewContent(wiz *wizard.Wizard, deps Deps) tea.Model {
	info := wiz.Flow().Describe(wiz.State().InputMethod)

	switch info.Method {
	case wizard.MethodUpload:
		return newUploadPhase(wiz, info, deps.StartDir)
	case wizard.MethodURL:
		return newURLPhase(wiz, info)
	case wizard.MethodPaste:
		return newPastePhase(wiz, info)
	case wizard.MethodRecord:
		return NewRecording(wiz, deps)
	default:
		return newNoMethodPhase()
	}
}

func renderHeader(sb *strings.Builder, info wizard.MethodInfo) {
	sb.WriteString(style.Title.Render(info.Title))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(info.Description))
	sb.WriteString("\n\n")
}

// upload

type fileLoadedMsg struct {
	payload wizard.FilePayload
	err     error
}

type uploadPhase struct {
	wiz    *wizard.Wizard
	info   wizard.MethodInfo
	picker filepicker.Model
	file   *wizard.FilePayload
	err    error
	keys   navKeyMap
}

func newUploadPhase(wiz *wizard.Wizard, info wizard.MethodInfo, startDir string) *uploadPhase {
	fp := filepicker.New()
	fp.CurrentDirectory = startDir
	if fp.CurrentDirectory == "" {
		fp.CurrentDirectory = "."
	}
	fp.ShowHidden = false
	fp.ShowSize = true
	fp.Height = 10
	// esc belongs to the wizard.
	fp.KeyMap.Back = key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("h", "back"))

	keys := defaultNavKeyMap()
	keys.Continue = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "continue"))

	up := &uploadPhase{wiz: wiz, info: info, picker: fp, keys: keys}
	if p, ok := wiz.State().Payload.(wizard.FilePayload); ok {
		up.file = &p
	}

	return up
}

func (up *uploadPhase) Init() tea.Cmd {
	return up.picker.Init()
}

func (up *uploadPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, up.keys.Back):
			return up, phases.PrevPhaseCmd
		case key.Matches(msg, up.keys.Continue):
			return up, phases.NextPhaseCmd
		}

	case fileLoadedMsg:
		up.err = msg.err
		if msg.err != nil {
			return up, nil
		}

		up.file = &msg.payload
		if err := up.wiz.SetPayload(msg.payload); err != nil {
			up.err = err
		}

		return up, nil
	}

	var cmd tea.Cmd
	up.picker, cmd = up.picker.Update(teaMsg)

	if didSelect, path := up.picker.DidSelectFile(teaMsg); didSelect {
		return up, tea.Batch(cmd, loadFileCmd(path))
	}

	return up, cmd
}

func loadFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return fileLoadedMsg{err: fmt.Errorf("failed to read %s: %w", path, err)}
		}

		return fileLoadedMsg{payload: wizard.FilePayload{
			Name: filepath.Base(path),
			Path: path,
			Data: data,
		}}
	}
}

func (up *uploadPhase) View() string {
	var sb strings.Builder

	renderHeader(&sb, up.info)

	if len(up.info.Accept) > 0 {
		sb.WriteString(style.Muted.Render("Accepted: " + strings.Join(up.info.Accept, ", ")))
		sb.WriteString("\n\n")
	}

	sb.WriteString(up.picker.View())
	sb.WriteString("\n\n")

	switch {
	case up.err != nil:
		sb.WriteString(style.Error.Render(up.err.Error()))
		sb.WriteString("\n\n")
	case up.file != nil:
		sb.WriteString(style.Success.Render("✓ " + up.file.Name))
		sb.WriteString(" ")
		sb.WriteString(style.Muted.Render(humanize.Bytes(uint64(up.file.Size()))))
		sb.WriteString("\n\n")
	}

	sb.WriteString(renderKeysHelp(up.keys.Continue, up.keys.Back))

	return sb.String()
}

// url

type urlPhase struct {
	wiz   *wizard.Wizard
	info  wizard.MethodInfo
	input textinput.Model
	keys  navKeyMap
}

func newURLPhase(wiz *wizard.Wizard, info wizard.MethodInfo) *urlPhase {
	ti := textinput.New()
	ti.Placeholder = "https://example.com/article"
	ti.CharLimit = 2048
	ti.Width = 60
	ti.Focus()

	if p, ok := wiz.State().Payload.(wizard.URLPayload); ok {
		ti.SetValue(p.URL)
	}

	return &urlPhase{wiz: wiz, info: info, input: ti, keys: defaultNavKeyMap()}
}

func (u *urlPhase) Init() tea.Cmd { return textinput.Blink }

func (u *urlPhase) Typing() bool { return true }

func (u *urlPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := teaMsg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, u.keys.Back):
			return u, phases.PrevPhaseCmd
		case key.Matches(keyMsg, u.keys.Continue):
			return u, phases.NextPhaseCmd
		}
	}

	var cmd tea.Cmd
	u.input, cmd = u.input.Update(teaMsg)
	syncPayload(u.wiz, u.input.Value(), func(s string) wizard.Payload { return wizard.URLPayload{URL: s} })

	return u, cmd
}

func (u *urlPhase) View() string {
	var sb strings.Builder

	renderHeader(&sb, u.info)
	sb.WriteString(u.input.View())
	sb.WriteString("\n\n")
	sb.WriteString(renderKeysHelp(u.keys.Continue, u.keys.Back))

	return sb.String()
}

// paste

type pastePhase struct {
	wiz  *wizard.Wizard
	info wizard.MethodInfo
	area textarea.Model
	keys navKeyMap
}

func newPastePhase(wiz *wizard.Wizard, info wizard.MethodInfo) *pastePhase {
	ta := textarea.New()
	ta.Placeholder = "Paste or type the text to translate..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(72)
	ta.SetHeight(8)
	ta.Focus()

	if p, ok := wiz.State().Payload.(wizard.TextPayload); ok {
		ta.SetValue(p.Text)
	}

	keys := defaultNavKeyMap()
	keys.Continue = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "continue"))

	return &pastePhase{wiz: wiz, info: info, area: ta, keys: keys}
}

func (p *pastePhase) Init() tea.Cmd { return textarea.Blink }

func (p *pastePhase) Typing() bool { return true }

func (p *pastePhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := teaMsg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, p.keys.Back):
			return p, phases.PrevPhaseCmd
		case key.Matches(keyMsg, p.keys.Continue):
			return p, phases.NextPhaseCmd
		}
	}

	var cmd tea.Cmd
	p.area, cmd = p.area.Update(teaMsg)
	syncPayload(p.wiz, p.area.Value(), func(s string) wizard.Payload { return wizard.TextPayload{Text: s} })

	return p, cmd
}

func (p *pastePhase) View() string {
	var sb strings.Builder

	renderHeader(&sb, p.info)
	sb.WriteString(p.area.View())
	sb.WriteString("\n")

	text := p.area.Value()
	sb.WriteString(style.Muted.Render(fmt.Sprintf("%s characters · %s words",
		humanize.Comma(int64(wizard.CharCount(text))),
		humanize.Comma(int64(wizard.WordCount(text))))))
	sb.WriteString("\n\n")
	sb.WriteString(renderKeysHelp(p.keys.Continue, p.keys.Back))

	return sb.String()
}

// syncPayload mirrors free text into the wizard; blank input clears it.
func syncPayload(wiz *wizard.Wizard, value string, build func(string) wizard.Payload) {
	if strings.TrimSpace(value) == "" {
		wiz.ClearPayload()
		return
	}

	_ = wiz.SetPayload(build(value))
}

type noMethodPhase struct{ keys navKeyMap }

func newNoMethodPhase() *noMethodPhase { return &noMethodPhase{keys: defaultNavKeyMap()} }

func (n *noMethodPhase) Init() tea.Cmd { return nil }

func (n *noMethodPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := teaMsg.(tea.KeyMsg); ok && key.Matches(keyMsg, n.keys.Back) {
		return n, phases.PrevPhaseCmd
	}

	return n, nil
}

func (n *noMethodPhase) View() string {
	return style.Warning.Render("No input method selected.") + "\n\n" + renderKeysHelp(n.keys.Back)
}
