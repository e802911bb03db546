// Package jobs runs translations as asynchronous tasks that can be watched
// and cancelled.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/pkg/channels"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
	ErrClosed            = errors.New("job manager closed")
)

// Job is a snapshot of one translation task.
type Job struct {
	ID        string             `json:"id"`
	Status    Status             `json:"status"`
	Progress  translate.Progress `json:"progress"`
	Request   translate.Request  `json:"-"`
	Result    *translate.Result  `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Seq       int64              `json:"seq"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type entry struct {
	job      Job
	cancel   context.CancelFunc
	watchers map[chan Job]struct{}
}

// Manager owns running jobs.
type Manager struct {
	processor translate.Processor

	mu     sync.Mutex
	jobs   map[string]*entry
	closed bool
	wg     sync.WaitGroup
}

func NewManager(processor translate.Processor) *Manager {
	return &Manager{
		processor: processor,
		jobs:      make(map[string]*entry),
	}
}

// Submit starts req in the background and returns the submitted job. The job
// is cancelled when ctx is done.
func (m *Manager) Submit(ctx context.Context, req translate.Request) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Job{}, ErrClosed
	}

	jctx, cancel := context.WithCancel(ctx)
	now := time.Now().UTC()

	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			Status:    StatusSubmitted,
			Request:   req,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel:   cancel,
		watchers: make(map[chan Job]struct{}),
	}
	m.jobs[e.job.ID] = e

	slog.InfoContext(ctx, "job submitted", "job", e.job.ID, "flow", req.Flow, "method", req.Method,
		"language", req.Language.Code)

	m.wg.Go(func() { m.run(jctx, e.job.ID, req) })

	return e.job, nil
}

func (m *Manager) run(ctx context.Context, id string, req translate.Request) {
	if err := m.update(id, func(j *Job) error { return transition(j, StatusInProgress) }); err != nil {
		return
	}

	res, err := m.processor.Process(ctx, req, func(p translate.Progress) {
		_ = m.update(id, func(j *Job) error {
			if j.Status != StatusInProgress {
				return ErrInvalidTransition
			}
			j.Progress = p
			return nil
		})
	})

	_ = m.update(id, func(j *Job) error {
		switch {
		case ctx.Err() != nil:
			return transition(j, StatusCancelled)
		case err != nil:
			slog.Error("job failed", "job", id, "error", err)
			j.Error = err.Error()
			return transition(j, StatusFailed)
		default:
			j.Result = res
			j.Progress = translate.Progress{Percent: 100, Stage: translate.StageFor(req.Flow, 100)}
			return transition(j, StatusCompleted)
		}
	})
}

func transition(j *Job, to Status) error {
	if !canTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}

	j.Status = to

	return nil
}

// update applies fn to the job and notifies watchers when it succeeds.
func (m *Manager) update(id string, fn func(*Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}

	if err := fn(&e.job); err != nil {
		return err
	}

	m.touch(e)

	return nil
}

// touch must be called with m.mu held.
func (m *Manager) touch(e *entry) {
	e.job.Seq++
	e.job.UpdatedAt = time.Now().UTC()
	m.notify(e)
}

// notify delivers the latest snapshot without blocking. Intermediate progress
// may be dropped for slow watchers; the terminal snapshot always lands.
func (m *Manager) notify(e *entry) {
	for ch := range e.watchers {
		if e.job.Status.IsFinished() {
			select {
			case <-ch:
			default:
			}
		}

		_ = channels.SendNonBlock(ch, e.job)

		if e.job.Status.IsFinished() {
			close(ch)
			delete(e.watchers, ch)
		}
	}

	if e.job.Status.IsFinished() {
		e.cancel()
	}
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return e.job, nil
}

// Cancel stops an active job. Cancelling a finished job is an invalid
// transition.
func (m *Manager) Cancel(id string) (Job, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()

	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := m.update(id, func(j *Job) error { return transition(j, StatusCancelled) }); err != nil {
		return Job{}, err
	}

	e.cancel()
	slog.Info("job cancelled", "job", id)

	return m.Get(id)
}

// Watch returns a channel receiving job snapshots, starting with the current
// one. The channel closes after the terminal snapshot or when stop is called.
func (m *Manager) Watch(id string) (<-chan Job, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ch := make(chan Job, 8)
	ch <- e.job

	if e.job.Status.IsFinished() {
		close(ch)
		return ch, func() {}, nil
	}

	e.watchers[ch] = struct{}{}

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := e.watchers[ch]; ok {
			delete(e.watchers, ch)
			close(ch)
		}
	}

	return ch, stop, nil
}

// Remove forgets a job. An active job is cancelled first, so its watchers
// still receive a terminal snapshot.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if e.job.Status.IsActive() {
		if err := transition(&e.job, StatusCancelled); err != nil {
			return err
		}
		m.touch(e)
	}

	delete(m.jobs, id)
	slog.Debug("job removed", "job", id)

	return nil
}

// Prune removes finished jobs last updated before cutoff and returns their
// IDs. Active jobs are never pruned.
func (m *Manager) Prune(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, e := range m.jobs {
		if e.job.Status.IsFinished() && e.job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		slog.Info("pruned finished jobs", "count", len(removed))
	}

	return removed
}

// Len is the number of jobs the manager holds.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.jobs)
}

// Close cancels every active job and waits for workers to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, e := range m.jobs {
		e.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
}
