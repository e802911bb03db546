// Package recording runs a microphone recording session: capture, a live
// analysis tap for waveform rendering, an elapsed-time ticker and a render
// loop, all acquired and released as one group.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/pkg/channels"
	"github.com/alkime/saywhat/pkg/uictl"
)

var (
	ErrInvalidTransition     = errors.New("invalid recording transition")
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	ErrClosed                = errors.New("recording session closed")
	ErrNothingRecorded       = errors.New("nothing was recorded")
)

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config tunes a Session. Zero fields take defaults.
type Config struct {
	SampleRate    int
	TickInterval  time.Duration
	FrameInterval time.Duration
	// TapSize is the number of recent samples kept for rendering.
	TapSize int
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSampleRate
	}

	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}

	if c.FrameInterval == 0 {
		c.FrameInterval = 50 * time.Millisecond
	}

	if c.TapSize == 0 {
		c.TapSize = c.SampleRate / 5
	}

	return c
}

// Hooks are invoked from session goroutines. They must not block and must
// not call back into the Session.
type Hooks struct {
	OnTick  func(elapsed time.Duration)
	OnFrame func()
}

// Session is one microphone recording. Transition methods are safe for
// concurrent use.
type Session struct {
	cfg   Config
	open  Opener
	hooks Hooks

	mu     sync.Mutex
	state  State
	clip   *audio.Clip
	res    *resources
	closed bool

	elapsed atomic.Int64
	tap     atomic.Pointer[audio.SampleRingBuffer]
}

// NewSession creates an idle session that opens the microphone through open.
func NewSession(open Opener, cfg Config, hooks Hooks) *Session {
	return &Session{
		cfg:   cfg.withDefaults(),
		open:  open,
		hooks: hooks,
	}
}

// Start acquires the microphone and begins capture. If the microphone cannot
// be acquired the session stays idle and ErrMicrophoneUnavailable is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("start", StateIdle); err != nil {
		return err
	}

	res, err := s.acquire(ctx)
	if err != nil {
		slog.WarnContext(ctx, "microphone unavailable", "error", err)
		return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}

	s.res = res
	s.tap.Store(res.tap)
	s.elapsed.Store(0)
	s.setState(StateRecording)

	return nil
}

// Pause suspends capture and the elapsed ticker.
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("pause", StateRecording); err != nil {
		return err
	}

	s.res.stopTicker()
	if err := s.res.mic.Stop(ctx); err != nil {
		return fmt.Errorf("pause: %w", err)
	}

	s.setState(StatePaused)

	return nil
}

// Resume restarts capture and the elapsed ticker.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("resume", StatePaused); err != nil {
		return err
	}

	if err := s.res.mic.Start(ctx); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	s.res.startTicker(s.cfg.TickInterval, &s.elapsed, s.hooks.OnTick)
	s.setState(StateRecording)

	return nil
}

// Stop finalizes everything captured since Start into one clip and releases
// all capture resources. If no samples arrived the session returns to idle
// and ErrNothingRecorded is returned.
func (s *Session) Stop(ctx context.Context) (*audio.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("stop", StateRecording, StatePaused); err != nil {
		return nil, err
	}

	chunks := s.release(ctx)
	clip := audio.NewClip(s.cfg.SampleRate, chunks...)
	if clip.Empty() {
		s.elapsed.Store(0)
		s.setState(StateIdle)

		return nil, ErrNothingRecorded
	}

	s.clip = clip
	s.setState(StateStopped)

	slog.DebugContext(ctx, "recording stopped",
		"bytes", s.clip.Len(),
		"duration", s.clip.Duration(),
		"chunks", len(chunks))

	return s.clip, nil
}

// Discard drops the finished clip and zeroes the elapsed counter.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("discard", StateStopped); err != nil {
		return err
	}

	s.clip = nil
	s.elapsed.Store(0)
	s.setState(StateIdle)

	return nil
}

// Close releases every resource regardless of state. No hook fires after
// Close returns. Close is idempotent.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.release(ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Elapsed is the recorded time, counted in whole ticks.
func (s *Session) Elapsed() time.Duration {
	return time.Duration(s.elapsed.Load())
}

// Clip returns the finalized clip, or nil before Stop.
func (s *Session) Clip() *audio.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clip
}

// Levels reads the most recent samples from the live tap. It reads nothing
// when no capture is open.
func (s *Session) Levels() uictl.Levels[int16] {
	return uictl.LevelsFunc[int16](func() []int16 {
		tap := s.tap.Load()
		if tap == nil {
			return nil
		}

		return tap.Read()
	})
}

func (s *Session) expect(op string, allowed ...State) error {
	if s.closed {
		return ErrClosed
	}

	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s.state)
}

func (s *Session) setState(next State) {
	slog.Debug("recording state", "from", s.state, "to", next)
	s.state = next
}

// release tears down the resource group, if any, and returns captured chunks.
func (s *Session) release(ctx context.Context) []audio.DataPacket {
	if s.res == nil {
		return nil
	}

	chunks := s.res.release(ctx)
	s.res = nil
	s.tap.Store(nil)

	return chunks
}

func (s *Session) acquire(ctx context.Context) (*resources, error) {
	res := &resources{
		tap:    audio.NewSampleRingBuffer(s.cfg.TapSize),
		chunkC: make(chan audio.DataPacket, 64),
		tapC:   make(chan audio.DataPacket, 16),
		quit:   make(chan struct{}),
		bcast:  channels.NewBroadcaster[audio.DataPacket](),
	}

	if err := res.bcast.SubscribeWithTimeout(res.chunkC, time.Second); err != nil {
		return nil, err
	}

	if err := res.bcast.Subscribe(res.tapC); err != nil {
		return nil, err
	}

	// The fan-out outlives the caller's context; release cancels it.
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	res.cancel = cancel

	input, err := res.bcast.Run(bctx)
	if err != nil {
		cancel()
		return nil, err
	}

	res.wg.Go(func() {
		for chunk := range res.chunkC {
			res.chunks = append(res.chunks, chunk)
		}
	})
	res.wg.Go(func() { res.tap.Consume(res.tapC) })

	mic, err := s.open(ctx, input)
	if err != nil {
		res.release(ctx)
		return nil, err
	}
	res.mic = mic

	if err := mic.Start(ctx); err != nil {
		res.release(ctx)
		return nil, err
	}

	res.startTicker(s.cfg.TickInterval, &s.elapsed, s.hooks.OnTick)
	res.startRenderLoop(s.cfg.FrameInterval, s.hooks.OnFrame)

	return res, nil
}

// resources is the scoped group owned by a running capture. It is only ever
// released as a whole.
type resources struct {
	mic    Microphone
	bcast  *channels.Broadcaster[audio.DataPacket]
	cancel context.CancelFunc
	tap    *audio.SampleRingBuffer

	chunkC chan audio.DataPacket
	tapC   chan audio.DataPacket
	chunks []audio.DataPacket

	quit chan struct{}
	wg   sync.WaitGroup

	tickStop chan struct{}
	tickDone chan struct{}
}

func (r *resources) startTicker(interval time.Duration, elapsed *atomic.Int64, onTick func(time.Duration)) {
	r.tickStop = make(chan struct{})
	r.tickDone = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				now := time.Duration(elapsed.Add(int64(interval)))
				if onTick != nil {
					onTick(now)
				}
			}
		}
	}(r.tickStop, r.tickDone)
}

func (r *resources) stopTicker() {
	if r.tickStop == nil {
		return
	}

	close(r.tickStop)
	<-r.tickDone
	r.tickStop = nil
	r.tickDone = nil
}

func (r *resources) startRenderLoop(interval time.Duration, onFrame func()) {
	r.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.quit:
				return
			case <-ticker.C:
				if onFrame != nil {
					onFrame()
				}
			}
		}
	})
}

func (r *resources) release(ctx context.Context) []audio.DataPacket {
	r.stopTicker()

	if r.mic != nil {
		if err := r.mic.Stop(ctx); err != nil {
			slog.WarnContext(ctx, "failed to stop microphone", "error", err)
		}
		r.mic.Dealloc(ctx)
	}

	// The microphone no longer writes, so the fan-out input can close.
	r.cancel()
	r.bcast.Wait()
	close(r.chunkC)
	close(r.tapC)
	close(r.quit)
	r.wg.Wait()

	return r.chunks
}
