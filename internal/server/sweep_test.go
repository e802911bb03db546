package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweepServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Env:            "test",
		CSPMode:        "relaxed",
		JobRetention:   time.Hour,
		SessionIdleTTL: 30 * time.Minute,
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	manager := jobs.NewManager(&translate.Simulator{Pace: func(wizard.Flow) translate.Pace {
		return translate.Pace{Step: 50, Interval: time.Millisecond}
	}})
	t.Cleanup(manager.Close)

	return New(cfg, logger, Deps{Jobs: manager})
}

func completedJob(t *testing.T, s *Server) jobs.Job {
	t.Helper()

	state := wizard.DefaultState()
	state.InputMethod = wizard.MethodPaste
	state.Payload = wizard.TextPayload{Text: "hello"}
	state.TargetLanguage = "fr"

	req, err := translate.NewRequest(wizard.FlowText, state)
	require.NoError(t, err)

	job, err := s.jobs.Submit(context.Background(), req)
	require.NoError(t, err)

	ch, stop, err := s.jobs.Watch(job.ID)
	require.NoError(t, err)
	defer stop()

	for job = range ch {
	}
	require.Equal(t, jobs.StatusCompleted, job.Status)

	return job
}

func get(s *Server, path string) int {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w.Code
}

func TestSweep_PrunesFinishedJobsAndChats(t *testing.T) {
	s := newSweepServer(t)
	job := completedJob(t, s)

	_, err := s.chats.get(job.ID).Submit(context.Background(), translate.CannedAnswerer{}, "why?", "doc", 0)
	require.NoError(t, err)

	s.sweep()
	assert.Equal(t, http.StatusOK, get(s, "/api/v1/jobs/"+job.ID), "within retention")

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s.sweep()

	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/jobs/"+job.ID))
	assert.Zero(t, s.jobs.Len())
	assert.NotContains(t, s.chats.chats, job.ID)
}

func TestSweep_ExpiresIdleSessions(t *testing.T) {
	s := newSweepServer(t)

	idle := s.sessions.create(wizard.FlowText)
	idle.mu.Lock()
	require.NoError(t, idle.wiz.SelectMethod(wizard.MethodPaste))
	require.NoError(t, idle.wiz.SetPayload(wizard.TextPayload{Text: "hello"}))
	require.NoError(t, idle.wiz.SetTargetLanguage("de"))
	idle.wiz.Advance()
	idle.wiz.Advance()
	idle.wiz.Advance()
	require.Equal(t, wizard.StepResults, idle.wiz.Step())
	require.NoError(t, s.submit(idle))
	jobID := idle.jobID
	idle.mu.Unlock()

	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	fresh := s.sessions.create(wizard.FlowAudio)
	fresh.touch(s.now())

	s.sweep()

	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/wizards/"+idle.id))
	assert.Equal(t, http.StatusOK, get(s, "/api/v1/wizards/"+fresh.id))

	_, err := s.jobs.Get(jobID)
	require.ErrorIs(t, err, jobs.ErrNotFound, "an expired session takes its job along")
	assert.Equal(t, wizard.StepMethod, idle.wiz.Step())
}

func TestDeleteWizard_RemovesJob(t *testing.T) {
	s := newSweepServer(t)

	sess := s.sessions.create(wizard.FlowText)
	job := completedJob(t, s)
	sess.jobID = job.ID
	s.chats.get(job.ID)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/wizards/"+sess.id, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/jobs/"+job.ID))
	assert.NotContains(t, s.chats.chats, job.ID)
}
