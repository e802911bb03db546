// Package workflow provides the bubbletea models for each wizard step.
package workflow

import (
	"context"
	"time"

	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/recording"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/atotto/clipboard"
)

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Player plays a recorded clip until it ends or ctx is done.
type Player func(ctx context.Context, clip *audio.Clip) error

// Deps are the services the step models talk to.
type Deps struct {
	Jobs       *jobs.Manager
	Answerer   translate.Answerer
	Microphone recording.Opener
	Recording  recording.Config
	Clipboard  Clipboard
	// Player previews recorded clips. Nil disables playback.
	Player     Player

	// ExportDir receives exported artifacts.
	ExportDir string
	// StartDir is where the file picker opens.
	StartDir string

	ReplyDelay time.Duration
	CopyAck    time.Duration
	Now        func() time.Time
}

const defaultCopyAck = 2 * time.Second

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}

	return d.Now()
}

func (d Deps) copyAck() time.Duration {
	if d.CopyAck <= 0 {
		return defaultCopyAck
	}

	return d.CopyAck
}
