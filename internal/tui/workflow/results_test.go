package workflow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processFunc func(ctx context.Context, req translate.Request, progress translate.ProgressFunc) (*translate.Result, error)

func (f processFunc) Process(ctx context.Context, req translate.Request, progress translate.ProgressFunc) (*translate.Result, error) {
	return f(ctx, req, progress)
}

func blockUntilCancelled(ctx context.Context, _ translate.Request, progress translate.ProgressFunc) (*translate.Result, error) {
	progress(translate.Progress{Percent: 10, Stage: "Analyzing content..."})
	<-ctx.Done()

	return nil, ctx.Err()
}

// resultsWizard walks a wizard to the results step with a pasted payload.
func resultsWizard(t *testing.T, features wizard.Features) *wizard.Wizard {
	t.Helper()

	wiz := wizardAt(t, wizard.FlowText, wizard.MethodPaste, wizard.StepContent)
	require.NoError(t, wiz.SetPayload(wizard.TextPayload{Text: "Hello there"}))
	wiz.Advance()
	require.NoError(t, wiz.SetTargetLanguage("es"))
	require.NoError(t, wiz.SetFeatures(features))
	wiz.Advance()
	require.Equal(t, wizard.StepResults, wiz.Step())

	return wiz
}

func TestResultsPhase_TextFlow(t *testing.T) {
	deps := newDeps(t, nil)
	clip, ok := deps.Clipboard.(*fakeClipboard)
	require.True(t, ok)

	wiz := resultsWizard(t, wizard.Features{Summarize: true, GenerateBanner: true, EnableQA: true})
	tm := newHarnessModel(t, NewResults(wiz, deps))
	checker := defaultChecker()

	checker.check(t, tm, func(buf []byte) bool {
		return bytes.Contains(buf, []byte("Translation complete")) &&
			bytes.Contains(buf, []byte("Summary")) &&
			bytes.Contains(buf, []byte("placehold.co"))
	})

	t.Run("copy shows an acknowledgement", func(t *testing.T) {
		tm.Send(runes("c"))
		checker.checkString(t, tm, "Copied!")
	})

	t.Run("export writes the translation", func(t *testing.T) {
		tm.Send(runes("e"))
		checker.checkString(t, tm, "saywhat-20260102-030405-translation.md")
	})

	t.Run("a question gets exactly one reply", func(t *testing.T) {
		tm.Send(tea.KeyMsg{Type: tea.KeyTab})
		tm.Send(runes("what is it?"))
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
		checker.checkString(t, tm, "You: what is it?")
		checker.checkString(t, tm, "Assistant: Based on the translated content")
	})

	h := finish(t, tm)
	r, ok := h.inner.(*resultsPhase)
	require.True(t, ok)

	assert.Contains(t, clip.Text(), "# Translated Content")
	assert.FileExists(t, filepath.Join(deps.ExportDir, "saywhat-20260102-030405-translation.md"))

	msgs := r.chat.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "what is it?", msgs[0].Content)
	assert.Zero(t, r.chat.Pending())
}

func TestResultsPhase_AudioFlowExports(t *testing.T) {
	deps := newDeps(t, nil)

	wiz := wizardAt(t, wizard.FlowAudio, wizard.MethodRecord, wizard.StepContent)
	require.NoError(t, wiz.SetPayload(wizard.ClipPayload{
		Data:     []byte{0xff, 0xfb, 0x90},
		MIMEType: "audio/mpeg",
		Duration: 42 * time.Second,
	}))
	wiz.Advance()
	require.NoError(t, wiz.SetTargetLanguage("fr"))
	require.NoError(t, wiz.SetFeatures(wizard.Features{IncludeTimestamps: true}))
	wiz.Advance()

	tm := newHarnessModel(t, NewResults(wiz, deps))
	checker := defaultChecker()

	checker.checkString(t, tm, "Original transcript (4 segments)")
	checker.checkString(t, tm, "Duration 00:42")

	tm.Send(runes("t"))
	checker.checkString(t, tm, "[00:05] Today we'll be discussing")

	tm.Send(runes("e"))
	checker.checkString(t, tm, "recording.mp3")
	finish(t, tm)

	transcript, err := os.ReadFile(filepath.Join(deps.ExportDir, "saywhat-20260102-030405-transcript.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "[00:12] Translation helps")

	recorded, err := os.ReadFile(filepath.Join(deps.ExportDir, "saywhat-20260102-030405-recording.mp3"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfb, 0x90}, recorded)
}

func TestResultsPhase_Cancel(t *testing.T) {
	deps := newDeps(t, processFunc(blockUntilCancelled))
	wiz := resultsWizard(t, wizard.Features{})
	tm := newHarnessModel(t, NewResults(wiz, deps))
	checker := defaultChecker()

	checker.checkString(t, tm, "Analyzing content...")

	tm.Send(runes("x"))
	checker.checkString(t, tm, "Translation cancelled.")
	finish(t, tm)
}

func TestResultsPhase_ResetCancelsJob(t *testing.T) {
	deps := newDeps(t, processFunc(blockUntilCancelled))
	wiz := resultsWizard(t, wizard.Features{})
	tm := newHarnessModel(t, NewResults(wiz, deps))
	checker := defaultChecker()

	checker.checkString(t, tm, "Analyzing content...")
	tm.Send(runes("n"))
	checker.checkString(t, tm, "[reset]")

	h := finish(t, tm)
	r, ok := h.inner.(*resultsPhase)
	require.True(t, ok)

	wiz.Reset()

	require.Eventually(t, func() bool {
		job, err := deps.Jobs.Get(r.job.ID)
		return err == nil && job.Status == jobs.StatusCancelled
	}, time.Second, 10*time.Millisecond)
}

func TestResultsPhase_Failure(t *testing.T) {
	deps := newDeps(t, processFunc(func(context.Context, translate.Request, translate.ProgressFunc) (*translate.Result, error) {
		return nil, errors.New("backend down")
	}))

	tm := newHarnessModel(t, NewResults(resultsWizard(t, wizard.Features{}), deps))
	defaultChecker().checkString(t, tm, "Translation failed: backend down")
	finish(t, tm)
}

func TestResultsPhase_IncompleteState(t *testing.T) {
	wiz := wizardAt(t, wizard.FlowText, wizard.MethodPaste, wizard.StepResults)
	m := NewResults(wiz, newDeps(t, nil))

	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "incomplete translation request")
}

func TestResultsPhase_CopyAckClearsOnlyLatest(t *testing.T) {
	r, ok := NewResults(resultsWizard(t, wizard.Features{}), newDeps(t, nil)).(*resultsPhase)
	require.True(t, ok)

	r.copied = true
	r.copySeq = 2

	r.Update(copyClearedMsg{seq: 1})
	assert.True(t, r.copied)

	r.Update(copyClearedMsg{seq: 2})
	assert.False(t, r.copied)
}

func TestResultsPhase_EditorFailure(t *testing.T) {
	r, ok := NewResults(resultsWizard(t, wizard.Features{}), newDeps(t, nil)).(*resultsPhase)
	require.True(t, ok)

	r.job = jobs.Job{
		ID:      "job-1",
		Status:  jobs.StatusCompleted,
		Result:  &translate.Result{SourceLanguage: "English", Translation: "Hola"},
		Request: translate.Request{Language: wizard.Language{Code: "es", Name: "Spanish"}},
	}
	r.exports = []string{"/tmp/saywhat-translation.md"}

	r.Update(editorClosedMsg{err: errors.New("exit status 1")})

	view := r.View()
	assert.Contains(t, view, "failed to open editor: exit status 1")
	assert.Contains(t, view, "open in editor")
}
