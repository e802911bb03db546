package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/internal/recording"
	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/tui/components/waveform"
	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/alkime/saywhat/pkg/channels"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// recordingKeyMap defines the key bindings for the recording phase.
type recordingKeyMap struct {
	Toggle   key.Binding
	Stop     key.Binding
	Play     key.Binding
	Discard  key.Binding
	Continue key.Binding
	Back     key.Binding
}

func defaultRecordingKeyMap() recordingKeyMap {
	nav := defaultNavKeyMap()

	return recordingKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "record/pause"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play/stop"),
		),
		Discard: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "discard"),
		),
		Continue: nav.Continue,
		Back:     nav.Back,
	}
}

// Session events are tagged with their session so a stale listener from an
// earlier visit to this step cannot drive the current one.
type elapsedMsg struct {
	session *recording.Session
	elapsed time.Duration
}

type frameMsg struct {
	session *recording.Session
}

type playbackDoneMsg struct {
	session *recording.Session
	seq     int
	err     error
}

type clipEncodedMsg struct {
	session *recording.Session
	payload wizard.ClipPayload
	err     error
}

// recordingPhase captures audio from the microphone into a ClipPayload.
type recordingPhase struct {
	wiz      *wizard.Wizard
	keys     recordingKeyMap
	session  *recording.Session
	player   Player
	events   chan tea.Msg
	wave     waveform.Model
	spinner  spinner.Model
	elapsed  time.Duration
	clip     *wizard.ClipPayload
	encoding bool
	err      error

	// preview is the raw clip from this visit; only it can be played back.
	preview  *audio.Clip
	stopPlay context.CancelFunc
	playSeq  int
}

// NewRecording creates the recording step. The session is closed when the
// wizard leaves the step.
func NewRecording(wiz *wizard.Wizard, deps Deps) tea.Model {
	events := make(chan tea.Msg, 16)

	r := &recordingPhase{
		wiz:    wiz,
		keys:   defaultRecordingKeyMap(),
		player: deps.Player,
		events: events,
	}

	r.session = recording.NewSession(deps.Microphone, deps.Recording, recording.Hooks{
		OnTick: func(elapsed time.Duration) {
			_ = channels.SendNonBlock[tea.Msg](events, elapsedMsg{session: r.session, elapsed: elapsed})
		},
		OnFrame: func() {
			_ = channels.SendNonBlock[tea.Msg](events, frameMsg{session: r.session})
		},
	})

	s := spinner.New()
	s.Spinner = spinner.Points
	r.spinner = s
	r.wave = waveform.New(r.session.Levels(), 48, 3)

	if p, ok := wiz.State().Payload.(wizard.ClipPayload); ok {
		r.clip = &p
		r.elapsed = p.Duration
	}

	wiz.Defer(func() {
		r.stopPlayback()
		r.session.Close(context.Background())
		close(events)
	})

	return r
}

func (r *recordingPhase) listen() tea.Cmd {
	events := r.events

	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}

		return msg
	}
}

// Init returns the initial command for the recording phase.
func (r *recordingPhase) Init() tea.Cmd {
	return tea.Batch(r.listen(), r.spinner.Tick)
}

// Update handles messages for the recording phase.
func (r *recordingPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.KeyMsg:
		return r, r.handleKey(msg)

	case elapsedMsg:
		if msg.session != r.session {
			return r, nil
		}
		r.elapsed = msg.elapsed

		return r, r.listen()

	case frameMsg:
		if msg.session != r.session {
			return r, nil
		}
		r.wave, _ = r.wave.Update(waveform.FrameMsg{})

		return r, r.listen()

	case clipEncodedMsg:
		if msg.session != r.session {
			return r, nil
		}
		r.encoding = false
		r.err = msg.err
		if msg.err != nil {
			r.preview = nil
			return r, nil
		}
		r.clip = &msg.payload
		r.err = r.wiz.SetPayload(msg.payload)

		return r, nil

	case playbackDoneMsg:
		if msg.session != r.session || msg.seq != r.playSeq {
			return r, nil
		}
		r.stopPlay = nil
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			r.err = fmt.Errorf("playback failed: %w", msg.err)
		}

		return r, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(msg)

		return r, cmd
	}

	return r, nil
}

func (r *recordingPhase) handleKey(msg tea.KeyMsg) tea.Cmd {
	ctx := context.Background()

	switch {
	case key.Matches(msg, r.keys.Back):
		return phases.PrevPhaseCmd

	case key.Matches(msg, r.keys.Continue):
		return phases.NextPhaseCmd

	case key.Matches(msg, r.keys.Toggle):
		r.err = r.toggle(ctx)

	case key.Matches(msg, r.keys.Stop):
		clip, err := r.session.Stop(ctx)
		if errors.Is(err, recording.ErrNothingRecorded) {
			r.elapsed = 0
			r.err = err

			return nil
		}
		if err != nil {
			return nil
		}

		r.encoding = true
		r.preview = clip
		r.err = nil

		return encodeClipCmd(r.session, clip)

	case key.Matches(msg, r.keys.Play):
		if r.stopPlay != nil {
			r.stopPlayback()
			return nil
		}

		return r.play()

	case key.Matches(msg, r.keys.Discard):
		r.stopPlayback()
		r.preview = nil
		if state := r.session.State(); state == recording.StateRecording || state == recording.StatePaused {
			_, _ = r.session.Stop(ctx)
		}
		_ = r.session.Discard()

		r.wiz.ClearPayload()
		r.clip = nil
		r.elapsed = 0
		r.err = nil
	}

	return nil
}

func (r *recordingPhase) canPlay() bool {
	return r.player != nil && r.preview != nil && r.clip != nil && !r.encoding
}

func (r *recordingPhase) play() tea.Cmd {
	if !r.canPlay() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.stopPlay = cancel
	r.playSeq++
	r.err = nil

	session, seq, player, clip := r.session, r.playSeq, r.player, r.preview

	return func() tea.Msg {
		defer cancel()
		return playbackDoneMsg{session: session, seq: seq, err: player(ctx, clip)}
	}
}

func (r *recordingPhase) stopPlayback() {
	if r.stopPlay != nil {
		r.stopPlay()
		r.stopPlay = nil
	}
}

func (r *recordingPhase) toggle(ctx context.Context) error {
	switch r.session.State() {
	case recording.StateIdle:
		if r.clip != nil {
			return errors.New("discard the current clip before recording again")
		}
		r.elapsed = 0

		return r.session.Start(ctx)
	case recording.StateRecording:
		return r.session.Pause(ctx)
	case recording.StatePaused:
		return r.session.Resume(ctx)
	default:
		return nil
	}
}

func encodeClipCmd(session *recording.Session, clip *audio.Clip) tea.Cmd {
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := clip.WriteMP3(context.Background(), &buf); err != nil {
			return clipEncodedMsg{session: session, err: err}
		}

		return clipEncodedMsg{session: session, payload: wizard.ClipPayload{
			Data:     buf.Bytes(),
			MIMEType: "audio/mpeg",
			Duration: clip.Duration(),
		}}
	}
}

// View renders the recording phase UI.
func (r *recordingPhase) View() string {
	var sb strings.Builder

	renderHeader(&sb, r.wiz.Flow().Describe(wizard.MethodRecord))

	state := r.session.State()
	switch {
	case r.encoding:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render("Finalizing recording..."))
	case state == recording.StateRecording:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Title.Render("Recording"))
	case state == recording.StatePaused:
		sb.WriteString(style.Warning.Render("Paused"))
	case r.stopPlay != nil:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Title.Render("Playing"))
	case r.clip != nil:
		sb.WriteString(style.Success.Render("✓ Clip ready"))
		sb.WriteString(" ")
		sb.WriteString(style.Muted.Render(humanize.Bytes(uint64(len(r.clip.Data)))))
	default:
		sb.WriteString(style.Subtitle.Render("Ready to record"))
	}

	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(formatElapsed(r.elapsed)))
	sb.WriteString("\n\n")

	r.wave.SetDimmed(state != recording.StateRecording)
	sb.WriteString(r.wave.View())
	sb.WriteString("\n\n")

	if r.err != nil {
		sb.WriteString(style.Error.Render(r.err.Error()))
		sb.WriteString("\n\n")
	}

	bindings := []key.Binding{r.keys.Toggle, r.keys.Stop, r.keys.Discard}
	if r.canPlay() {
		bindings = append(bindings, r.keys.Play)
	}
	if r.clip != nil {
		bindings = append(bindings, r.keys.Continue)
	}
	sb.WriteString(renderKeysHelp(append(bindings, r.keys.Back)...))

	return sb.String()
}

// formatElapsed renders d as mm:ss.
func formatElapsed(d time.Duration) string {
	total := int(d / time.Second)

	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
