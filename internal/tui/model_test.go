package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/tui/workflow"
	"github.com/alkime/saywhat/internal/wizard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func waitFor(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()

	teatest.WaitFor(t, tm.Output(), func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	}, teatest.WithCheckInterval(50*time.Millisecond), teatest.WithDuration(3*time.Second))
}

func testDeps(t *testing.T) workflow.Deps {
	t.Helper()

	manager := jobs.NewManager(&translate.Simulator{Pace: func(wizard.Flow) translate.Pace {
		return translate.Pace{Step: 50, Interval: 5 * time.Millisecond}
	}})
	t.Cleanup(manager.Close)

	return workflow.Deps{
		Jobs:      manager,
		Answerer:  translate.CannedAnswerer{},
		ExportDir: t.TempDir(),
		StartDir:  t.TempDir(),
	}
}

func TestModel_TextFlow(t *testing.T) {
	wiz := wizard.New(wizard.FlowText)
	tm := teatest.NewTestModel(t, New(wiz, testDeps(t)), teatest.WithInitialTermSize(120, 60))

	waitFor(t, tm, "Text translation")
	waitFor(t, tm, "Paste Text")

	// Paste is the third method.
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitFor(t, tm, "characters")

	// q is text while typing.
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("quite right")})
	waitFor(t, tm, "11 characters")

	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	waitFor(t, tm, "Target language")

	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	time.Sleep(100 * time.Millisecond)
	for range 3 {
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
		time.Sleep(100 * time.Millisecond)
	}

	waitFor(t, tm, "Translation complete")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	st := wiz.State()
	assert.Equal(t, wizard.StepMethod, wiz.Step())
	assert.Equal(t, wizard.MethodNone, st.InputMethod)
	assert.Nil(t, st.Payload)
	assert.Empty(t, st.TargetLanguage)
}

func TestModel_StartOver(t *testing.T) {
	wiz := wizard.New(wizard.FlowAudio)
	tm := teatest.NewTestModel(t, New(wiz, testDeps(t)), teatest.WithInitialTermSize(120, 60))

	waitFor(t, tm, "Audio translation")
	waitFor(t, tm, "Upload Audio File")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitFor(t, tm, "Accepted")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlR})
	waitFor(t, tm, "Record Audio")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	assert.Equal(t, wizard.StepMethod, wiz.Step())
}
