package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/qa"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/components/progressview"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/alkime/saywhat/internal/workdir"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const panelWidth = 76

type resultsKeyMap struct {
	Copy       key.Binding
	Export     key.Binding
	Open       key.Binding
	Transcript key.Binding
	Ask        key.Binding
	Send       key.Binding
	Leave      key.Binding
	Cancel     key.Binding
	New        key.Binding
}

func defaultResultsKeyMap() resultsKeyMap {
	return resultsKeyMap{
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in editor"),
		),
		Transcript: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "transcript"),
		),
		Ask: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "ask a question"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "done asking"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new translation"),
		),
	}
}

// Messages from background work carry the job id; results from an earlier
// visit are dropped.
type jobMsg struct{ job jobs.Job }

type replyMsg struct {
	jobID  string
	answer string
	err    error
}

type copyClearedMsg struct{ seq int }

type editorClosedMsg struct{ err error }

type exportedMsg struct {
	jobID string
	paths []string
	err   error
}

type resultsPhase struct {
	wiz  *wizard.Wizard
	deps Deps
	keys resultsKeyMap

	progress progressview.Model
	job      jobs.Job
	updates  <-chan jobs.Job
	err      error

	copied  bool
	copySeq int

	exports        []string
	showTranscript bool

	chat   *qa.Chat
	input  textinput.Model
	asking bool
}

// NewResults submits the wizard state as a job and shows its progress and
// result. The job is cancelled when the wizard leaves the step.
func NewResults(wiz *wizard.Wizard, deps Deps) tea.Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the translated content..."
	ti.CharLimit = 500
	ti.Width = 60

	return &resultsPhase{
		wiz:      wiz,
		deps:     deps,
		keys:     defaultResultsKeyMap(),
		progress: progressview.New(spinner.Dot, "Translating", ""),
		chat:     qa.NewChat(),
		input:    ti,
	}
}

func (r *resultsPhase) Init() tea.Cmd {
	if err := r.submit(); err != nil {
		r.err = err
		return nil
	}

	return tea.Batch(r.progress.Init(), r.listen())
}

func (r *resultsPhase) submit() error {
	req, err := translate.NewRequest(r.wiz.Flow(), r.wiz.State())
	if err != nil {
		return err
	}

	job, err := r.deps.Jobs.Submit(r.wiz.RunContext(), req)
	if err != nil {
		return fmt.Errorf("failed to submit translation: %w", err)
	}

	updates, stop, err := r.deps.Jobs.Watch(job.ID)
	if err != nil {
		return fmt.Errorf("failed to watch translation: %w", err)
	}

	r.wiz.Defer(stop)
	r.job = job
	r.updates = updates

	return nil
}

func (r *resultsPhase) listen() tea.Cmd {
	updates := r.updates

	return func() tea.Msg {
		job, ok := <-updates
		if !ok {
			return nil
		}

		return jobMsg{job: job}
	}
}

// Typing reports whether the question input has focus.
func (r *resultsPhase) Typing() bool { return r.asking }

func (r *resultsPhase) completed() bool {
	return r.job.Status == jobs.StatusCompleted && r.job.Result != nil
}

func (r *resultsPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case jobMsg:
		if msg.job.ID != r.job.ID {
			return r, nil
		}

		r.job = msg.job
		r.progress.SetProgress(msg.job.Progress.Percent, msg.job.Progress.Stage)
		if msg.job.Status.IsFinished() {
			return r, nil
		}

		return r, r.listen()

	case replyMsg:
		if msg.jobID != r.job.ID || msg.err != nil {
			return r, nil
		}

		if _, err := r.chat.Reply(msg.answer); err != nil {
			r.err = err
		}

		return r, nil

	case copyClearedMsg:
		if msg.seq == r.copySeq {
			r.copied = false
		}

		return r, nil

	case exportedMsg:
		if msg.jobID != r.job.ID {
			return r, nil
		}

		r.exports = msg.paths
		r.err = msg.err

		return r, nil

	case editorClosedMsg:
		if msg.err != nil {
			r.err = fmt.Errorf("failed to open editor: %w", msg.err)
		}

		return r, nil

	case spinner.TickMsg:
		if r.job.Status.IsFinished() {
			return r, nil
		}

		var cmd tea.Cmd
		r.progress, cmd = r.progress.Update(msg)

		return r, cmd

	case tea.KeyMsg:
		if r.asking {
			return r, r.handleQuestionKey(msg)
		}

		return r, r.handleKey(msg)
	}

	if r.asking {
		var cmd tea.Cmd
		r.input, cmd = r.input.Update(teaMsg)

		return r, cmd
	}

	return r, nil
}

func (r *resultsPhase) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, r.keys.New):
		return phases.ResetCmd

	case key.Matches(msg, r.keys.Cancel):
		if r.job.Status.IsActive() {
			if _, err := r.deps.Jobs.Cancel(r.job.ID); err != nil && !errors.Is(err, jobs.ErrInvalidTransition) {
				r.err = err
			}
		}

	case !r.completed():
		return nil

	case key.Matches(msg, r.keys.Copy):
		if err := r.deps.Clipboard.WriteAll(r.job.Result.Translation); err != nil {
			r.err = fmt.Errorf("failed to copy: %w", err)
			return nil
		}

		r.copied = true
		r.copySeq++
		seq := r.copySeq

		return tea.Tick(r.deps.copyAck(), func(time.Time) tea.Msg { return copyClearedMsg{seq: seq} })

	case key.Matches(msg, r.keys.Export):
		return r.exportCmd()

	case key.Matches(msg, r.keys.Open):
		if len(r.exports) > 0 {
			return tea.ExecProcess(workdir.EditorCommand(r.exports[0]), func(err error) tea.Msg {
				return editorClosedMsg{err: err}
			})
		}

	case key.Matches(msg, r.keys.Transcript):
		if len(r.job.Result.Transcript) > 0 {
			r.showTranscript = !r.showTranscript
		}

	case key.Matches(msg, r.keys.Ask):
		if r.job.Request.Features.EnableQA {
			r.asking = true
			return r.input.Focus()
		}
	}

	return nil
}

func (r *resultsPhase) handleQuestionKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, r.keys.Leave):
		r.asking = false
		r.input.Blur()

		return nil

	case key.Matches(msg, r.keys.Send):
		// One question at a time keeps each answer next to its question.
		if r.chat.Pending() > 0 {
			return nil
		}

		question := r.input.Value()
		if _, err := r.chat.Ask(question); err != nil {
			return nil
		}

		r.input.Reset()

		return r.answerCmd(question)
	}

	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)

	return cmd
}

func (r *resultsPhase) answerCmd(question string) tea.Cmd {
	ctx := r.wiz.RunContext()
	jobID := r.job.ID
	content := r.job.Result.Translation
	answerer := r.deps.Answerer
	delay := r.deps.ReplyDelay

	return func() tea.Msg {
		answer, err := qa.Respond(ctx, answerer, question, content, delay)
		return replyMsg{jobID: jobID, answer: answer, err: err}
	}
}

func (r *resultsPhase) exportCmd() tea.Cmd {
	job := r.job
	exporter := workdir.NewExporter(r.deps.ExportDir, r.deps.now())

	return func() tea.Msg {
		msg := exportedMsg{jobID: job.ID}
		res := job.Result

		path, err := exporter.Translation(res, job.Request.Language.Name)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.paths = append(msg.paths, path)

		if len(res.Transcript) > 0 {
			if path, err = exporter.Transcript(res, job.Request.Features.IncludeTimestamps); err != nil {
				msg.err = err
				return msg
			}
			msg.paths = append(msg.paths, path)
		}

		if len(res.Audio) > 0 {
			if path, err = exporter.Audio(res.Audio); err != nil {
				msg.err = err
				return msg
			}
			msg.paths = append(msg.paths, path)
		}

		if clip, ok := job.Request.Payload.(wizard.ClipPayload); ok {
			if path, err = exporter.Recording(clip.Data); err != nil {
				msg.err = err
				return msg
			}
			msg.paths = append(msg.paths, path)
		}

		return msg
	}
}

func (r *resultsPhase) View() string {
	var sb strings.Builder

	switch r.job.Status {
	case jobs.StatusCompleted:
		r.renderResult(&sb)
	case jobs.StatusFailed:
		sb.WriteString(style.Error.Render("Translation failed: " + r.job.Error))
		sb.WriteString("\n\n")
		sb.WriteString(renderKeysHelp(r.keys.New))
	case jobs.StatusCancelled:
		sb.WriteString(style.Warning.Render("Translation cancelled."))
		sb.WriteString("\n\n")
		sb.WriteString(renderKeysHelp(r.keys.New))
	default:
		if r.err != nil && r.job.ID == "" {
			sb.WriteString(style.Error.Render(r.err.Error()))
			sb.WriteString("\n\n")
			sb.WriteString(renderKeysHelp(r.keys.New))

			return sb.String()
		}

		sb.WriteString(r.progress.View())
		sb.WriteString("\n\n")
		sb.WriteString(renderKeysHelp(r.keys.Cancel, r.keys.New))
	}

	return sb.String()
}

func section(sb *strings.Builder, title, body string) {
	sb.WriteString(style.Label.Render(title))
	sb.WriteString("\n")
	sb.WriteString(style.Panel.Width(panelWidth).Render(body))
	sb.WriteString("\n\n")
}

func (r *resultsPhase) renderResult(sb *strings.Builder) {
	res := r.job.Result
	req := r.job.Request

	sb.WriteString(style.Success.Render("✓ Translation complete"))
	sb.WriteString(" ")
	sb.WriteString(style.Muted.Render(fmt.Sprintf("%s · %s", req.Language, req.Tone.Title())))
	sb.WriteString("\n")

	meta := "Detected source: " + res.SourceLanguage
	if res.Duration > 0 {
		meta += " · Duration " + formatElapsed(res.Duration)
	}
	sb.WriteString(style.Subtitle.Render(meta))
	sb.WriteString("\n\n")

	if len(res.Transcript) > 0 {
		if r.showTranscript {
			section(sb, "▾ Original transcript", res.TranscriptText(req.Features.IncludeTimestamps))
		} else {
			sb.WriteString(style.Label.Render("▸ Original transcript"))
			sb.WriteString(" ")
			sb.WriteString(style.Muted.Render(fmt.Sprintf("(%d segments)", len(res.Transcript))))
			sb.WriteString("\n\n")
		}
	}

	if req.Features.Summarize && res.Summary != "" {
		section(sb, "Summary", res.Summary)
	}

	section(sb, "Translation", res.Translation)

	if req.Features.GenerateBanner && res.BannerURL != "" {
		sb.WriteString(style.Label.Render("Banner: "))
		sb.WriteString(style.Muted.Render(res.BannerURL))
		sb.WriteString("\n")
	}

	if req.Features.GenerateAudio {
		sb.WriteString(style.Label.Render("Audio: "))
		if len(res.Audio) > 0 {
			sb.WriteString(style.Muted.Render(humanize.Bytes(uint64(len(res.Audio))) + " " + res.AudioMIMEType))
		} else {
			sb.WriteString(style.Muted.Render("not available"))
		}
		sb.WriteString("\n")
	}

	if r.copied {
		sb.WriteString(style.Success.Render("Copied!"))
		sb.WriteString("\n")
	}

	for _, path := range r.exports {
		sb.WriteString(style.Label.Render("Saved: "))
		sb.WriteString(style.Muted.Render(path))
		sb.WriteString("\n")
	}

	if r.err != nil {
		sb.WriteString(style.Error.Render(r.err.Error()))
		sb.WriteString("\n")
	}

	if req.Features.EnableQA {
		sb.WriteString("\n")
		r.renderChat(sb)
	}

	sb.WriteString("\n")

	bindings := []key.Binding{r.keys.Copy, r.keys.Export}
	if len(r.exports) > 0 {
		bindings = append(bindings, r.keys.Open)
	}
	if len(res.Transcript) > 0 {
		bindings = append(bindings, r.keys.Transcript)
	}
	if req.Features.EnableQA {
		bindings = append(bindings, r.keys.Ask)
	}
	bindings = append(bindings, r.keys.New)
	if r.asking {
		bindings = []key.Binding{r.keys.Send, r.keys.Leave}
	}
	sb.WriteString(renderKeysHelp(bindings...))
}

func (r *resultsPhase) renderChat(sb *strings.Builder) {
	sb.WriteString(style.Label.Render("Questions about this content"))
	sb.WriteString("\n")

	for _, m := range r.chat.Messages() {
		if m.Role == qa.RoleUser {
			sb.WriteString(style.UserMessage.Render("You: " + m.Content))
		} else {
			sb.WriteString(style.AssistantMessage.Render("Assistant: " + m.Content))
		}
		sb.WriteString("\n")
	}

	if r.chat.Pending() > 0 {
		sb.WriteString(style.Muted.Render("Assistant is typing..."))
		sb.WriteString("\n")
	}

	if r.asking {
		sb.WriteString(r.input.View())
		sb.WriteString("\n")
	}
}
