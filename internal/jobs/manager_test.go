package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processFunc func(ctx context.Context, req translate.Request, progress translate.ProgressFunc) (*translate.Result, error)

func (f processFunc) Process(ctx context.Context, req translate.Request, progress translate.ProgressFunc) (*translate.Result, error) {
	return f(ctx, req, progress)
}

func request(t *testing.T) translate.Request {
	t.Helper()

	state := wizard.DefaultState()
	state.InputMethod = wizard.MethodPaste
	state.Payload = wizard.TextPayload{Text: "hello"}
	state.TargetLanguage = "it"

	req, err := translate.NewRequest(wizard.FlowText, state)
	require.NoError(t, err)

	return req
}

func fastSimulator() *translate.Simulator {
	return &translate.Simulator{Pace: func(wizard.Flow) translate.Pace {
		return translate.Pace{Step: 25, Interval: time.Millisecond}
	}}
}

func drain(ch <-chan jobs.Job) []jobs.Job {
	var out []jobs.Job
	for j := range ch {
		out = append(out, j)
	}
	return out
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status   jobs.Status
		active   bool
		finished bool
	}{
		{jobs.StatusSubmitted, true, false},
		{jobs.StatusInProgress, true, false},
		{jobs.StatusCompleted, false, true},
		{jobs.StatusFailed, false, true},
		{jobs.StatusCancelled, false, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.active, tt.status.IsActive(), tt.status)
		assert.Equal(t, tt.finished, tt.status.IsFinished(), tt.status)
	}
}

func TestManager_Completes(t *testing.T) {
	m := jobs.NewManager(fastSimulator())
	defer m.Close()

	job, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSubmitted, job.Status)
	assert.NotEmpty(t, job.ID)

	ch, stop, err := m.Watch(job.ID)
	require.NoError(t, err)
	defer stop()

	snapshots := drain(ch)
	require.NotEmpty(t, snapshots)

	last := snapshots[len(snapshots)-1]
	assert.Equal(t, jobs.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress.Percent)
	require.NotNil(t, last.Result)
	assert.Contains(t, last.Result.Translation, "Italian")

	for i := 1; i < len(snapshots); i++ {
		assert.Greater(t, snapshots[i].Seq, snapshots[i-1].Seq)
	}

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, last.Seq, got.Seq)
}

func TestManager_Fails(t *testing.T) {
	m := jobs.NewManager(processFunc(func(context.Context, translate.Request, translate.ProgressFunc) (*translate.Result, error) {
		return nil, errors.New("backend down")
	}))
	defer m.Close()

	job, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)

	ch, _, err := m.Watch(job.ID)
	require.NoError(t, err)

	snapshots := drain(ch)
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, jobs.StatusFailed, last.Status)
	assert.Equal(t, "backend down", last.Error)
	assert.Nil(t, last.Result)
}

func blockingProcessor(started chan<- struct{}) processFunc {
	return func(ctx context.Context, _ translate.Request, progress translate.ProgressFunc) (*translate.Result, error) {
		progress(translate.Progress{Percent: 10})
		close(started)
		<-ctx.Done()
		// A result that arrives after cancellation must be discarded.
		return &translate.Result{Translation: "late"}, nil
	}
}

func TestManager_CancelIsFinal(t *testing.T) {
	started := make(chan struct{})
	m := jobs.NewManager(blockingProcessor(started))
	defer m.Close()

	job, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)
	<-started

	cancelled, err := m.Cancel(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, cancelled.Status)

	m.Close()

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, got.Status)
	assert.Nil(t, got.Result)

	_, err = m.Cancel(job.ID)
	require.ErrorIs(t, err, jobs.ErrInvalidTransition)
}

func TestManager_ParentContextCancels(t *testing.T) {
	started := make(chan struct{})
	m := jobs.NewManager(blockingProcessor(started))
	defer m.Close()

	ctx, reset := context.WithCancel(context.Background())
	job, err := m.Submit(ctx, request(t))
	require.NoError(t, err)
	<-started

	ch, _, err := m.Watch(job.ID)
	require.NoError(t, err)

	reset()

	snapshots := drain(ch)
	assert.Equal(t, jobs.StatusCancelled, snapshots[len(snapshots)-1].Status)
}

func TestManager_NotFound(t *testing.T) {
	m := jobs.NewManager(fastSimulator())
	defer m.Close()

	_, err := m.Get("nope")
	require.ErrorIs(t, err, jobs.ErrNotFound)
	_, err = m.Cancel("nope")
	require.ErrorIs(t, err, jobs.ErrNotFound)
	_, _, err = m.Watch("nope")
	require.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestManager_WatchStop(t *testing.T) {
	started := make(chan struct{})
	m := jobs.NewManager(blockingProcessor(started))
	defer m.Close()

	job, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)
	<-started

	ch, stop, err := m.Watch(job.ID)
	require.NoError(t, err)

	stop()
	stop()

	first, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, job.ID, first.ID)

	for range ch {
	}
}

func waitUntilCancelled(ctx context.Context, _ translate.Request, _ translate.ProgressFunc) (*translate.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestManager_Remove(t *testing.T) {
	t.Run("finished job", func(t *testing.T) {
		m := jobs.NewManager(fastSimulator())
		defer m.Close()

		job, err := m.Submit(context.Background(), request(t))
		require.NoError(t, err)

		ch, _, err := m.Watch(job.ID)
		require.NoError(t, err)
		drain(ch)

		require.NoError(t, m.Remove(job.ID))
		_, err = m.Get(job.ID)
		require.ErrorIs(t, err, jobs.ErrNotFound)
		require.ErrorIs(t, m.Remove(job.ID), jobs.ErrNotFound)
		assert.Zero(t, m.Len())
	})

	t.Run("active job is cancelled first", func(t *testing.T) {
		m := jobs.NewManager(processFunc(waitUntilCancelled))
		defer m.Close()

		job, err := m.Submit(context.Background(), request(t))
		require.NoError(t, err)

		ch, _, err := m.Watch(job.ID)
		require.NoError(t, err)

		require.NoError(t, m.Remove(job.ID))

		snapshots := drain(ch)
		assert.Equal(t, jobs.StatusCancelled, snapshots[len(snapshots)-1].Status)

		_, err = m.Get(job.ID)
		require.ErrorIs(t, err, jobs.ErrNotFound)
	})
}

func TestManager_Prune(t *testing.T) {
	m := jobs.NewManager(processFunc(waitUntilCancelled))
	defer m.Close()

	done, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)
	_, err = m.Cancel(done.ID)
	require.NoError(t, err)

	active, err := m.Submit(context.Background(), request(t))
	require.NoError(t, err)

	assert.Empty(t, m.Prune(time.Now().Add(-time.Hour)), "recent jobs are kept")
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, []string{done.ID}, m.Prune(time.Now().Add(time.Hour)))

	_, err = m.Get(done.ID)
	require.ErrorIs(t, err, jobs.ErrNotFound)

	got, err := m.Get(active.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.IsActive())
}

func TestManager_Closed(t *testing.T) {
	m := jobs.NewManager(fastSimulator())
	m.Close()

	_, err := m.Submit(context.Background(), request(t))
	require.ErrorIs(t, err, jobs.ErrClosed)
}
