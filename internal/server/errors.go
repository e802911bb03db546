package server

import (
	"errors"
	"net/http"

	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/qa"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/gin-gonic/gin"
)

var (
	errSessionNotFound = errors.New("wizard session not found")
	errStepIncomplete  = errors.New("current step is incomplete")
	errBadRequest      = errors.New("malformed request")
	errJobNotReady     = errors.New("job has no result")
	errQADisabled      = errors.New("questions are not enabled for this job")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, errStepIncomplete),
		errors.Is(err, errJobNotReady),
		errors.Is(err, errQADisabled),
		errors.Is(err, jobs.ErrInvalidTransition),
		errors.Is(err, qa.ErrNoPendingQuestion):
		return http.StatusConflict

	case errors.Is(err, errBadRequest),
		errors.Is(err, wizard.ErrUnknownFlow),
		errors.Is(err, wizard.ErrInvalidMethod),
		errors.Is(err, wizard.ErrPayloadMismatch),
		errors.Is(err, wizard.ErrUnknownLanguage),
		errors.Is(err, wizard.ErrUnknownTone),
		errors.Is(err, wizard.ErrUnsupportedFeature),
		errors.Is(err, translate.ErrIncompleteRequest),
		errors.Is(err, qa.ErrEmptyQuestion):
		return http.StatusBadRequest

	case errors.Is(err, jobs.ErrClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
