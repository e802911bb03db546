// Package translate turns a completed wizard state into translation results.
// Processors run asynchronously under a context and report progress as they
// go; the Simulator stands in for real services and Remote calls them.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/saywhat/internal/wizard"
)

// ErrIncompleteRequest is returned when a state cannot be submitted.
var ErrIncompleteRequest = errors.New("incomplete translation request")

// Request is the submission contract: payload plus configuration.
type Request struct {
	Flow     wizard.Flow     `json:"flow"`
	Method   wizard.Method   `json:"method"`
	Payload  wizard.Payload  `json:"payload"`
	Language wizard.Language `json:"language"`
	Tone     wizard.Tone     `json:"tone"`
	Features wizard.Features `json:"features"`
}

// NewRequest builds a Request from a wizard state. The payload must be valid
// for its method and a target language must be set.
func NewRequest(flow wizard.Flow, state wizard.State) (Request, error) {
	if state.Payload == nil || !state.Payload.Valid() || state.Payload.Method() != state.InputMethod {
		return Request{}, fmt.Errorf("%w: no valid %q payload", ErrIncompleteRequest, state.InputMethod)
	}

	lang, ok := wizard.LookupLanguage(state.TargetLanguage)
	if !ok {
		return Request{}, fmt.Errorf("%w: target language %q", ErrIncompleteRequest, state.TargetLanguage)
	}

	tone := state.Tone
	if tone == "" {
		tone = wizard.DefaultTone
	}

	return Request{
		Flow:     flow,
		Method:   state.InputMethod,
		Payload:  state.Payload,
		Language: lang,
		Tone:     tone,
		Features: state.Features,
	}, nil
}

// Segment is one timed span of an audio transcript.
type Segment struct {
	Start time.Duration `json:"start"`
	Text  string        `json:"text"`
}

// String formats the segment as "[mm:ss] text".
func (s Segment) String() string {
	total := int(s.Start / time.Second)
	return fmt.Sprintf("[%02d:%02d] %s", total/60, total%60, s.Text)
}

// Result is the terminal output of a translation.
type Result struct {
	SourceLanguage string        `json:"sourceLanguage"`
	Translation    string        `json:"translation"`
	Summary        string        `json:"summary,omitempty"`
	Transcript     []Segment     `json:"transcript,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
	BannerURL      string        `json:"bannerUrl,omitempty"`
	Audio          []byte        `json:"-"`
	AudioMIMEType  string        `json:"audioMimeType,omitempty"`
}

// TranscriptText renders the transcript one segment per line. Timestamps are
// included when requested.
func (r *Result) TranscriptText(timestamps bool) string {
	lines := make([]string, 0, len(r.Transcript))
	for _, s := range r.Transcript {
		if timestamps {
			lines = append(lines, s.String())
		} else {
			lines = append(lines, s.Text)
		}
	}

	return strings.Join(lines, "\n")
}

// Progress is a processing checkpoint.
type Progress struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// ProgressFunc receives checkpoints in increasing order. It may be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(flow wizard.Flow, percent int) {
	if f == nil {
		return
	}

	percent = min(max(percent, 0), 100)
	f(Progress{Percent: percent, Stage: StageFor(flow, percent)})
}

// Processor runs a translation to completion or until ctx is done.
type Processor interface {
	Process(ctx context.Context, req Request, progress ProgressFunc) (*Result, error)
}

// Answerer answers a question about previously translated content.
type Answerer interface {
	Answer(ctx context.Context, question, content string) (string, error)
}

// StageFor returns the display label for a progress percentage.
func StageFor(flow wizard.Flow, percent int) string {
	if flow == wizard.FlowAudio {
		switch {
		case percent < 25:
			return "Analyzing audio..."
		case percent < 50:
			return "Transcribing speech..."
		case percent < 75:
			return "Translating content..."
		default:
			return "Finalizing translation..."
		}
	}

	switch {
	case percent < 30:
		return "Analyzing content..."
	case percent < 60:
		return "Translating text..."
	case percent < 90:
		return "Applying tone adjustments..."
	default:
		return "Finalizing translation..."
	}
}
