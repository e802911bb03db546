package workflow

import (
	"strings"

	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

const (
	featureSummarize  = "summarize"
	featureBanner     = "banner"
	featureAudio      = "audio"
	featureTimestamps = "timestamps"
	featureQA         = "qa"
)

// formValues is bound to the huh fields; the form writes through pointers.
type formValues struct {
	language string
	tone     wizard.Tone
	features []string
}

type configurePhase struct {
	wiz    *wizard.Wizard
	form   *huh.Form
	values *formValues
	keys   navKeyMap
	err    error
}

// NewConfigure builds the translation options form from the wizard state.
func NewConfigure(wiz *wizard.Wizard) tea.Model {
	state := wiz.State()
	values := &formValues{
		language: state.TargetLanguage,
		tone:     state.Tone,
		features: featuresToKeys(state.Features),
	}

	languages := []huh.Option[string]{huh.NewOption("Select a language", "")}
	for _, l := range wizard.Languages() {
		languages = append(languages, huh.NewOption(l.String(), l.Code))
	}

	tones := make([]huh.Option[wizard.Tone], 0)
	for _, t := range wizard.Tones() {
		tones = append(tones, huh.NewOption(t.Title(), t))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target language").
				Options(languages...).
				Validate(requireLanguage).
				Value(&values.language),
			huh.NewSelect[wizard.Tone]().
				Title("Tone").
				Options(tones...).
				Value(&values.tone),
			huh.NewMultiSelect[string]().
				Title("Features").
				Options(featureOptions(wiz.Flow())...).
				Value(&values.features),
		),
	).WithTheme(huh.ThemeCatppuccin()).
		WithShowHelp(true)

	form.SubmitCmd = nil
	form.CancelCmd = nil

	return &configurePhase{
		wiz:    wiz,
		form:   form,
		values: values,
		keys:   defaultNavKeyMap(),
	}
}

func requireLanguage(code string) error {
	if code == "" {
		return wizard.ErrUnknownLanguage
	}

	return nil
}

func featureOptions(flow wizard.Flow) []huh.Option[string] {
	opts := []huh.Option[string]{
		huh.NewOption("Summarize content", featureSummarize),
		huh.NewOption("Generate banner image", featureBanner),
		huh.NewOption("Generate audio (text-to-speech)", featureAudio),
	}

	if flow == wizard.FlowAudio {
		opts = append(opts, huh.NewOption("Include timestamps", featureTimestamps))
	}

	return append(opts, huh.NewOption("Enable Q&A", featureQA))
}

func featuresToKeys(f wizard.Features) []string {
	flags := []struct {
		key string
		on  bool
	}{
		{featureSummarize, f.Summarize},
		{featureBanner, f.GenerateBanner},
		{featureAudio, f.GenerateAudio},
		{featureTimestamps, f.IncludeTimestamps},
		{featureQA, f.EnableQA},
	}

	var keys []string
	for _, flag := range flags {
		if flag.on {
			keys = append(keys, flag.key)
		}
	}

	return keys
}

func keysToFeatures(keys []string) wizard.Features {
	var f wizard.Features
	for _, k := range keys {
		switch k {
		case featureSummarize:
			f.Summarize = true
		case featureBanner:
			f.GenerateBanner = true
		case featureAudio:
			f.GenerateAudio = true
		case featureTimestamps:
			f.IncludeTimestamps = true
		case featureQA:
			f.EnableQA = true
		}
	}

	return f
}

func (c *configurePhase) Init() tea.Cmd {
	return c.form.Init()
}

// Typing is true while the form holds focus; its select filter takes letters.
func (c *configurePhase) Typing() bool { return c.form.State == huh.StateNormal }

func (c *configurePhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := teaMsg.(tea.KeyMsg); ok && key.Matches(keyMsg, c.keys.Back) {
		return c, phases.PrevPhaseCmd
	}

	mdl, cmd := c.form.Update(teaMsg)
	if f, ok := mdl.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State != huh.StateCompleted {
		return c, cmd
	}

	if c.err = c.apply(); c.err != nil {
		return c, cmd
	}

	if !c.wiz.CanAdvance() {
		return c, cmd
	}

	return c, tea.Batch(cmd, phases.NextPhaseCmd)
}

func (c *configurePhase) apply() error {
	if err := c.wiz.SetTargetLanguage(c.values.language); err != nil {
		return err
	}

	if err := c.wiz.SetTone(c.values.tone); err != nil {
		return err
	}

	return c.wiz.SetFeatures(keysToFeatures(c.values.features))
}

func (c *configurePhase) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Translation options"))
	sb.WriteString("\n\n")
	sb.WriteString(c.form.View())
	sb.WriteString("\n")

	if c.err != nil {
		sb.WriteString(style.Error.Render(c.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString(renderKeysHelp(c.keys.Back))

	return sb.String()
}
