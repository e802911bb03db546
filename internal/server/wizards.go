package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// session is one browser-driven wizard. Handlers hold mu for every wizard
// call.
type session struct {
	mu      sync.Mutex
	id      string
	wiz     *wizard.Wizard
	jobID   string
	created time.Time

	// lastSeen is the unix nano time of the latest request.
	lastSeen atomic.Int64
}

func (sess *session) touch(now time.Time) {
	sess.lastSeen.Store(now.UnixNano())
}

func (sess *session) idleSince(cutoff time.Time) bool {
	return sess.lastSeen.Load() < cutoff.UnixNano()
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) create(flow wizard.Flow) *session {
	sess := &session{
		id:      uuid.NewString(),
		wiz:     wizard.New(flow),
		created: time.Now().UTC(),
	}
	sess.touch(sess.created)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	return sess
}

func (s *sessionStore) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	sess.touch(time.Now())

	return sess, nil
}

// expire removes and returns sessions with no request since cutoff.
func (s *sessionStore) expire(cutoff time.Time) []*session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*session
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}

	return expired
}

func (s *sessionStore) remove(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}

	delete(s.sessions, id)

	return sess, nil
}

func (s *sessionStore) resetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.mu.Lock()
		sess.wiz.Reset()
		sess.mu.Unlock()
		delete(s.sessions, id)
	}
}

type wizardView struct {
	ID         string              `json:"id"`
	Flow       wizard.Flow         `json:"flow"`
	Step       wizard.Step         `json:"step"`
	StepName   string              `json:"stepName"`
	State      wizard.State        `json:"state"`
	CanAdvance bool                `json:"canAdvance"`
	Methods    []wizard.MethodInfo `json:"methods"`
	JobID      string              `json:"jobId,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// view must be called with sess.mu held.
func (sess *session) view() wizardView {
	flow := sess.wiz.Flow()
	methods := make([]wizard.MethodInfo, 0, len(flow.Methods()))
	for _, m := range flow.Methods() {
		methods = append(methods, flow.Describe(m))
	}

	return wizardView{
		ID:         sess.id,
		Flow:       flow,
		Step:       sess.wiz.Step(),
		StepName:   sess.wiz.Step().String(),
		State:      sess.wiz.State(),
		CanAdvance: sess.wiz.CanAdvance(),
		Methods:    methods,
		JobID:      sess.jobID,
		CreatedAt:  sess.created,
	}
}

// withSession runs fn on the session named by the :id param and responds with
// the resulting wizard view.
func (s *Server) withSession(c *gin.Context, fn func(*session) error) {
	sess, err := s.sessions.get(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.view())
}

type createWizardRequest struct {
	Flow string `json:"flow" binding:"required"`
}

func (s *Server) handleCreateWizard(c *gin.Context) {
	var body createWizardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	flow, err := wizard.ParseFlow(body.Flow)
	if err != nil {
		s.respondError(c, err)
		return
	}

	sess := s.sessions.create(flow)
	s.logger.Info("wizard session created", "session", sess.id, "flow", flow)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	c.JSON(http.StatusCreated, sess.view())
}

func (s *Server) handleGetWizard(c *gin.Context) {
	s.withSession(c, func(*session) error { return nil })
}

func (s *Server) handleDeleteWizard(c *gin.Context) {
	sess, err := s.sessions.remove(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.release(sess)

	c.Status(http.StatusNoContent)
}

// release cancels a removed session's run and drops its job and chat.
func (s *Server) release(sess *session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.wiz.Reset()
	if sess.jobID == "" {
		return
	}

	if err := s.jobs.Remove(sess.jobID); err != nil && !errors.Is(err, jobs.ErrNotFound) {
		s.logger.Warn("failed to remove wizard job", "session", sess.id, "job", sess.jobID, "error", err)
	}
	s.chats.remove(sess.jobID)
	sess.jobID = ""
}

type methodRequest struct {
	Method string `json:"method" binding:"required"`
}

func (s *Server) handleSetMethod(c *gin.Context) {
	var body methodRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	s.withSession(c, func(sess *session) error {
		return sess.wiz.SelectMethod(wizard.Method(body.Method))
	})
}

type textPayloadRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// handleSetPayload accepts JSON for paste and url, and multipart form data
// with a "file" part for upload or a "clip" part for record.
func (s *Server) handleSetPayload(c *gin.Context) {
	s.withSession(c, func(sess *session) error {
		payload, err := readPayload(c, sess.wiz.State().InputMethod)
		if err != nil {
			return err
		}

		return sess.wiz.SetPayload(payload)
	})
}

func (s *Server) handleClearPayload(c *gin.Context) {
	s.withSession(c, func(sess *session) error {
		sess.wiz.ClearPayload()
		return nil
	})
}

func readPayload(c *gin.Context, method wizard.Method) (wizard.Payload, error) {
	switch method {
	case wizard.MethodPaste, wizard.MethodURL:
		var body textPayloadRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadRequest, err)
		}

		if method == wizard.MethodURL {
			return wizard.URLPayload{URL: body.URL}, nil
		}

		return wizard.TextPayload{Text: body.Text}, nil

	case wizard.MethodUpload:
		fh, data, err := formFile(c, "file")
		if err != nil {
			return nil, err
		}

		return wizard.FilePayload{Name: fh.Filename, Data: data}, nil

	case wizard.MethodRecord:
		fh, data, err := formFile(c, "clip")
		if err != nil {
			return nil, err
		}

		clip := wizard.ClipPayload{Data: data, MIMEType: fh.Header.Get("Content-Type")}
		if clip.MIMEType == "" {
			clip.MIMEType = "audio/mpeg"
		}

		if d := c.PostForm("duration"); d != "" {
			clip.Duration, err = time.ParseDuration(d)
			if err != nil {
				return nil, fmt.Errorf("%w: duration: %w", errBadRequest, err)
			}
		}

		return clip, nil

	default:
		return nil, fmt.Errorf("%w: select a method first", wizard.ErrPayloadMismatch)
	}
}

func formFile(c *gin.Context, field string) (*multipart.FileHeader, []byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil, fmt.Errorf("%w: expected multipart form with a %q part", errBadRequest, field)
	}

	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", errBadRequest, field, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}

	return fh, data, nil
}

type configRequest struct {
	TargetLanguage *string          `json:"targetLanguage"`
	Tone           *string          `json:"tone"`
	Features       *wizard.Features `json:"features"`
}

// handleSetConfig applies the fields present in the body. Validation stops
// at the first rejected field; earlier fields stay applied.
func (s *Server) handleSetConfig(c *gin.Context) {
	var body configRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	s.withSession(c, func(sess *session) error {
		if body.TargetLanguage != nil {
			if err := sess.wiz.SetTargetLanguage(*body.TargetLanguage); err != nil {
				return err
			}
		}

		if body.Tone != nil {
			if err := sess.wiz.SetTone(wizard.Tone(*body.Tone)); err != nil {
				return err
			}
		}

		if body.Features != nil {
			return sess.wiz.SetFeatures(*body.Features)
		}

		return nil
	})
}

// handleAdvance moves forward when the current step is complete. Entering
// the results step submits the state as a job bound to the session's run.
func (s *Server) handleAdvance(c *gin.Context) {
	s.withSession(c, func(sess *session) error {
		if !sess.wiz.CanAdvance() {
			return fmt.Errorf("%w: %s", errStepIncomplete, sess.wiz.Step())
		}

		sess.wiz.Advance()
		if sess.wiz.Step() != wizard.StepResults {
			return nil
		}

		if err := s.submit(sess); err != nil {
			sess.wiz.Retreat()
			return err
		}

		return nil
	})
}

// submit must be called with sess.mu held.
func (s *Server) submit(sess *session) error {
	req, err := translate.NewRequest(sess.wiz.Flow(), sess.wiz.State())
	if err != nil {
		return err
	}

	job, err := s.jobs.Submit(sess.wiz.RunContext(), req)
	if err != nil {
		return err
	}

	sess.jobID = job.ID
	s.logger.Info("wizard submitted job", "session", sess.id, "job", job.ID)

	return nil
}

func (s *Server) handleRetreat(c *gin.Context) {
	s.withSession(c, func(sess *session) error {
		sess.wiz.Retreat()
		sess.jobID = ""

		return nil
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.withSession(c, func(sess *session) error {
		sess.wiz.Reset()
		sess.jobID = ""

		return nil
	})
}

func (s *Server) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": wizard.MatchLanguages(c.Query("q"))})
}
