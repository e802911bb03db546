package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type jobRequest struct {
	Flow           string          `json:"flow" binding:"required"`
	Method         string          `json:"method" binding:"required"`
	Text           string          `json:"text"`
	URL            string          `json:"url"`
	TargetLanguage string          `json:"targetLanguage" binding:"required"`
	Tone           string          `json:"tone"`
	Features       wizard.Features `json:"features"`
}

// request validates body through a throwaway wizard so direct submissions
// obey the same rules as the step flow.
func (body jobRequest) request() (translate.Request, error) {
	flow, err := wizard.ParseFlow(body.Flow)
	if err != nil {
		return translate.Request{}, err
	}

	wiz := wizard.New(flow)
	method := wizard.Method(body.Method)
	if err := wiz.SelectMethod(method); err != nil {
		return translate.Request{}, err
	}

	var payload wizard.Payload
	switch method {
	case wizard.MethodPaste:
		payload = wizard.TextPayload{Text: body.Text}
	case wizard.MethodURL:
		payload = wizard.URLPayload{URL: body.URL}
	default:
		return translate.Request{}, fmt.Errorf("%w: %q jobs are created through a wizard session",
			errBadRequest, method)
	}

	if err := wiz.SetPayload(payload); err != nil {
		return translate.Request{}, err
	}

	if err := wiz.SetTargetLanguage(body.TargetLanguage); err != nil {
		return translate.Request{}, err
	}

	if body.Tone != "" {
		if err := wiz.SetTone(wizard.Tone(body.Tone)); err != nil {
			return translate.Request{}, err
		}
	}

	if err := wiz.SetFeatures(body.Features); err != nil {
		return translate.Request{}, err
	}

	return translate.NewRequest(flow, wiz.State())
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var body jobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	req, err := body.request()
	if err != nil {
		s.respondError(c, err)
		return
	}

	// The job outlives the request; DELETE cancels it.
	job, err := s.jobs.Submit(context.WithoutCancel(c.Request.Context()), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.jobs.Get(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (s *Server) handleCancelJob(c *gin.Context) {
	job, err := s.jobs.Cancel(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// handleJobEvents streams job snapshots over a websocket until the job
// finishes or the client goes away.
func (s *Server) handleJobEvents(c *gin.Context) {
	updates, stop, err := s.jobs.Watch(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer stop()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job", c.Param("id"), "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return

		case job, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(writeWait))
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(job); err != nil {
				s.logger.Debug("websocket write failed", "job", job.ID, "error", err)
				return
			}
		}
	}
}

// answerable returns the completed job id names, or an error when questions
// cannot be asked about it.
func (s *Server) answerable(id string) (jobs.Job, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return jobs.Job{}, err
	}

	if job.Status != jobs.StatusCompleted || job.Result == nil {
		return jobs.Job{}, fmt.Errorf("%w: %s is %s", errJobNotReady, id, job.Status)
	}

	if !job.Request.Features.EnableQA {
		return jobs.Job{}, errQADisabled
	}

	return job, nil
}

func (s *Server) handleListQuestions(c *gin.Context) {
	job, err := s.answerable(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	chat := s.chats.get(job.ID)
	c.JSON(http.StatusOK, gin.H{"messages": chat.Messages(), "pending": chat.Pending()})
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// handleAskQuestion blocks until the assistant replies. A reply always lands
// in the transcript, even when the client disconnects first.
func (s *Server) handleAskQuestion(c *gin.Context) {
	var body questionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	job, err := s.answerable(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	added, err := s.chats.get(job.ID).Submit(c.Request.Context(), s.answerer,
		body.Question, job.Result.Translation, s.replyDelay)
	if added == nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": added})
}
