package workflow

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/recording"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/tui/components/phases"
	"github.com/alkime/saywhat/internal/wizard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	intervl, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		intervl: 50 * time.Millisecond,
		timeout: 3 * time.Second,
	}
}

func (o outputChecker) check(t *testing.T, tm *teatest.TestModel, checkFunc func(buf []byte) bool) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), checkFunc,
		teatest.WithCheckInterval(o.intervl),
		teatest.WithDuration(o.timeout))
}

func (o outputChecker) checkString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	o.check(t, tm, func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	})
}

// harness stands in for the phases container: it records navigation
// requests instead of acting on them.
type harness struct {
	inner    tea.Model
	advanced bool
	back     bool
	reset    bool
}

func (h *harness) Init() tea.Cmd { return h.inner.Init() }

func (h *harness) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case phases.NextPhaseMsg:
		h.advanced = true
		return h, nil
	case phases.PrevPhaseMsg:
		h.back = true
		return h, nil
	case phases.ResetMsg:
		h.reset = true
		return h, nil
	}

	var cmd tea.Cmd
	h.inner, cmd = h.inner.Update(msg)

	return h, cmd
}

func (h *harness) View() string {
	v := h.inner.View()
	if h.advanced {
		v += "\n[advanced]"
	}
	if h.back {
		v += "\n[back]"
	}
	if h.reset {
		v += "\n[reset]"
	}

	return v
}

func newHarnessModel(t *testing.T, inner tea.Model) *teatest.TestModel {
	t.Helper()

	return teatest.NewTestModel(t, &harness{inner: inner}, teatest.WithInitialTermSize(120, 60))
}

func finish(t *testing.T, tm *teatest.TestModel) *harness {
	t.Helper()

	require.NoError(t, tm.Quit())
	h, ok := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second)).(*harness)
	require.True(t, ok, "final model is a harness")

	return h
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// fakeClipboard records the last copied text.
type fakeClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.text = text

	return nil
}

func (c *fakeClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.text
}

// fakeMic streams a loud square wave while started.
type fakeMic struct {
	dataC chan<- audio.DataPacket

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	deallocs int
}

func (m *fakeMic) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)

		packet := audio.DataPacket{0xff, 0x3f, 0x01, 0xc0}
		for {
			select {
			case <-stop:
				return
			case m.dataC <- append(audio.DataPacket(nil), packet...):
				time.Sleep(time.Millisecond)
			}
		}
	}(m.stop, m.done)

	return nil
}

func (m *fakeMic) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop != nil {
		close(m.stop)
		<-m.done
		m.stop = nil
	}

	return nil
}

func (m *fakeMic) Dealloc(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deallocs++
}

func (m *fakeMic) Deallocs() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.deallocs
}

type fakeOpener struct {
	mu   sync.Mutex
	mics []*fakeMic
	err  error
}

func (o *fakeOpener) open(_ context.Context, dataC chan<- audio.DataPacket) (recording.Microphone, error) {
	if o.err != nil {
		return nil, o.err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	mic := &fakeMic{dataC: dataC}
	o.mics = append(o.mics, mic)

	return mic, nil
}

func (o *fakeOpener) Mics() []*fakeMic {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]*fakeMic(nil), o.mics...)
}

func fastPace(wizard.Flow) translate.Pace {
	return translate.Pace{Step: 25, Interval: 5 * time.Millisecond}
}

func newDeps(t *testing.T, processor translate.Processor) Deps {
	t.Helper()

	if processor == nil {
		processor = &translate.Simulator{Pace: fastPace}
	}

	manager := jobs.NewManager(processor)
	t.Cleanup(manager.Close)

	return Deps{
		Jobs:       manager,
		Answerer:   translate.CannedAnswerer{},
		Microphone: (&fakeOpener{}).open,
		Recording: recording.Config{
			TickInterval:  200 * time.Millisecond,
			FrameInterval: 20 * time.Millisecond,
		},
		Clipboard:  &fakeClipboard{},
		ExportDir:  t.TempDir(),
		StartDir:   t.TempDir(),
		ReplyDelay: 10 * time.Millisecond,
		CopyAck:    100 * time.Millisecond,
		Now:        func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

// wizardAt returns a wizard positioned on step with the given method.
func wizardAt(t *testing.T, flow wizard.Flow, method wizard.Method, step wizard.Step) *wizard.Wizard {
	t.Helper()

	wiz := wizard.New(flow)
	if method != wizard.MethodNone {
		if err := wiz.SelectMethod(method); err != nil {
			t.Fatal(err)
		}
	}

	for wiz.Step() < step {
		wiz.Advance()
	}

	return wiz
}
