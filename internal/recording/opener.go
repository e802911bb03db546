package recording

import (
	"context"
	"errors"
	"sync"

	"github.com/alkime/saywhat/internal/audio"
)

// ErrMicrophoneBusy is returned by an Exclusive opener while another handle
// is still allocated.
var ErrMicrophoneBusy = errors.New("microphone in use")

// Microphone is an open capture handle. audio.Device satisfies it.
type Microphone interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dealloc(ctx context.Context)
}

// Opener allocates a capture handle that writes packets into dataC once
// started. The handle must not write to dataC after Stop returns.
type Opener func(ctx context.Context, dataC chan<- audio.DataPacket) (Microphone, error)

// DeviceOpener opens the malgo capture device described by conf.
func DeviceOpener(conf *audio.DeviceConfig) Opener {
	return func(ctx context.Context, dataC chan<- audio.DataPacket) (Microphone, error) {
		return audio.Open(ctx, conf, dataC)
	}
}

// Exclusive wraps open so that at most one handle it returns is allocated at
// any time. The slot frees when the handle is deallocated.
func Exclusive(open Opener) Opener {
	slot := make(chan struct{}, 1)

	return func(ctx context.Context, dataC chan<- audio.DataPacket) (Microphone, error) {
		select {
		case slot <- struct{}{}:
		default:
			return nil, ErrMicrophoneBusy
		}

		mic, err := open(ctx, dataC)
		if err != nil {
			<-slot
			return nil, err
		}

		return &exclusiveMic{Microphone: mic, release: func() { <-slot }}, nil
	}
}

type exclusiveMic struct {
	Microphone
	once    sync.Once
	release func()
}

func (m *exclusiveMic) Dealloc(ctx context.Context) {
	m.once.Do(func() {
		m.Microphone.Dealloc(ctx)
		m.release()
	})
}
