package recording_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMic writes a two-sample packet every millisecond while started.
type fakeMic struct {
	dataC chan<- audio.DataPacket
	value byte

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	deallocs  atomic.Int32
	startErr  error
	silent    bool
	packetsIn atomic.Int32
}

func (m *fakeMic) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	if m.silent {
		close(m.done)
		return nil
	}

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)

		for {
			select {
			case <-stop:
				return
			case m.dataC <- audio.DataPacket{m.value, 0, m.value, 0}:
				m.packetsIn.Add(1)
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

func (m *fakeMic) Dealloc(context.Context) { m.deallocs.Add(1) }

type fakeOpener struct {
	mics   []*fakeMic
	err    error
	silent bool
}

func (o *fakeOpener) open(_ context.Context, dataC chan<- audio.DataPacket) (recording.Microphone, error) {
	if o.err != nil {
		return nil, o.err
	}

	mic := &fakeMic{dataC: dataC, value: byte(len(o.mics) + 1), silent: o.silent}
	o.mics = append(o.mics, mic)

	return mic, nil
}

type counters struct {
	ticks  atomic.Int32
	frames atomic.Int32
}

func newSession(t *testing.T, o *fakeOpener) (*recording.Session, *counters) {
	t.Helper()

	c := &counters{}
	s := recording.NewSession(o.open, recording.Config{
		SampleRate:    16000,
		TickInterval:  10 * time.Millisecond,
		FrameInterval: 5 * time.Millisecond,
		TapSize:       64,
	}, recording.Hooks{
		OnTick:  func(time.Duration) { c.ticks.Add(1) },
		OnFrame: func() { c.frames.Add(1) },
	})
	t.Cleanup(func() { s.Close(context.Background()) })

	return s, c
}

func TestSession_StartStop(t *testing.T) {
	ctx := context.Background()
	o := &fakeOpener{}
	s, c := newSession(t, o)

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, recording.StateRecording, s.State())

	require.Eventually(t, func() bool {
		return len(s.Levels().Read()) > 0 && c.ticks.Load() > 0 && c.frames.Load() > 0
	}, time.Second, time.Millisecond)

	clip, err := s.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.False(t, clip.Empty())
	assert.Equal(t, int(o.mics[0].packetsIn.Load())*4, clip.Len())
	assert.Same(t, clip, s.Clip())
	assert.Equal(t, recording.StateStopped, s.State())
	assert.Positive(t, s.Elapsed())
	assert.Nil(t, s.Levels().Read(), "tap released with the capture")
	assert.Equal(t, int32(1), o.mics[0].deallocs.Load())
}

func TestSession_PauseResumeKeepsBothIntervals(t *testing.T) {
	ctx := context.Background()
	o := &fakeOpener{}
	s, _ := newSession(t, o)

	require.NoError(t, s.Start(ctx))
	require.Eventually(t, func() bool { return o.mics[0].packetsIn.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, s.Pause(ctx))
	assert.Equal(t, recording.StatePaused, s.State())
	beforeResume := o.mics[0].packetsIn.Load()

	elapsed := s.Elapsed()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, elapsed, s.Elapsed(), "ticker halts while paused")

	require.NoError(t, s.Resume(ctx))
	require.Eventually(t, func() bool {
		return o.mics[0].packetsIn.Load() >= beforeResume+3
	}, time.Second, time.Millisecond)

	clip, err := s.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int(o.mics[0].packetsIn.Load())*4, clip.Len())
	assert.Greater(t, clip.Len(), int(beforeResume)*4)
}

func TestSession_Discard(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, &fakeOpener{})

	assert.ErrorIs(t, s.Discard(), recording.ErrInvalidTransition)

	require.NoError(t, s.Start(ctx))
	require.Eventually(t, func() bool { return s.Elapsed() > 0 }, time.Second, time.Millisecond)
	_, err := s.Stop(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Discard())
	assert.Equal(t, recording.StateIdle, s.State())
	assert.Nil(t, s.Clip())
	assert.Zero(t, s.Elapsed())

	require.NoError(t, s.Start(ctx), "a fresh recording can start")
}

func TestSession_StopWithoutSamples(t *testing.T) {
	ctx := context.Background()
	o := &fakeOpener{silent: true}
	s, _ := newSession(t, o)

	require.NoError(t, s.Start(ctx))
	require.Eventually(t, func() bool { return s.Elapsed() > 0 }, time.Second, time.Millisecond)

	clip, err := s.Stop(ctx)
	require.ErrorIs(t, err, recording.ErrNothingRecorded)
	assert.Nil(t, clip)
	assert.Nil(t, s.Clip())
	assert.Equal(t, recording.StateIdle, s.State())
	assert.Zero(t, s.Elapsed())
	assert.Equal(t, int32(1), o.mics[0].deallocs.Load(), "microphone released")

	require.NoError(t, s.Start(ctx), "a fresh recording can start")
}

func TestSession_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, &fakeOpener{})

	assert.ErrorIs(t, s.Pause(ctx), recording.ErrInvalidTransition)
	assert.ErrorIs(t, s.Resume(ctx), recording.ErrInvalidTransition)
	_, err := s.Stop(ctx)
	assert.ErrorIs(t, err, recording.ErrInvalidTransition)

	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), recording.ErrInvalidTransition)
	assert.ErrorIs(t, s.Resume(ctx), recording.ErrInvalidTransition)
}

func TestSession_MicrophoneUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("open fails", func(t *testing.T) {
		s, c := newSession(t, &fakeOpener{err: errors.New("permission denied")})

		err := s.Start(ctx)
		require.ErrorIs(t, err, recording.ErrMicrophoneUnavailable)
		assert.ErrorContains(t, err, "permission denied")
		assert.Equal(t, recording.StateIdle, s.State())

		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, c.ticks.Load())
		assert.Zero(t, c.frames.Load())
	})

	t.Run("start fails", func(t *testing.T) {
		failing := func(_ context.Context, dataC chan<- audio.DataPacket) (recording.Microphone, error) {
			return &fakeMic{dataC: dataC, startErr: errors.New("no device")}, nil
		}
		s := recording.NewSession(failing, recording.Config{}, recording.Hooks{})

		require.ErrorIs(t, s.Start(ctx), recording.ErrMicrophoneUnavailable)
		assert.Equal(t, recording.StateIdle, s.State())
	})
}

func TestSession_CloseFromAnyState(t *testing.T) {
	ctx := context.Background()

	setups := map[string]func(t *testing.T, s *recording.Session){
		"idle": func(*testing.T, *recording.Session) {},
		"recording": func(t *testing.T, s *recording.Session) {
			require.NoError(t, s.Start(ctx))
		},
		"paused": func(t *testing.T, s *recording.Session) {
			require.NoError(t, s.Start(ctx))
			require.NoError(t, s.Pause(ctx))
		},
		"stopped": func(t *testing.T, s *recording.Session) {
			require.NoError(t, s.Start(ctx))
			require.Eventually(t, func() bool { return len(s.Levels().Read()) > 0 }, time.Second, time.Millisecond)
			_, err := s.Stop(ctx)
			require.NoError(t, err)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			o := &fakeOpener{}
			s, c := newSession(t, o)
			setup(t, s)
			time.Sleep(15 * time.Millisecond)

			s.Close(ctx)
			s.Close(ctx)

			ticks, frames := c.ticks.Load(), c.frames.Load()
			time.Sleep(40 * time.Millisecond)
			assert.Equal(t, ticks, c.ticks.Load(), "ticker still running")
			assert.Equal(t, frames, c.frames.Load(), "render loop still running")

			for _, mic := range o.mics {
				assert.Equal(t, int32(1), mic.deallocs.Load())
			}

			assert.ErrorIs(t, s.Start(ctx), recording.ErrClosed)
		})
	}
}

func TestExclusive(t *testing.T) {
	ctx := context.Background()
	o := &fakeOpener{}
	open := recording.Exclusive(o.open)

	first := recording.NewSession(open, recording.Config{}, recording.Hooks{})
	second := recording.NewSession(open, recording.Config{}, recording.Hooks{})

	require.NoError(t, first.Start(ctx))
	err := second.Start(ctx)
	require.ErrorIs(t, err, recording.ErrMicrophoneUnavailable)
	require.ErrorIs(t, err, recording.ErrMicrophoneBusy)

	first.Close(ctx)
	require.NoError(t, second.Start(ctx))
	second.Close(ctx)
}
