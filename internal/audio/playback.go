package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrEmptyClip is returned when there is nothing to play.
var ErrEmptyClip = errors.New("clip is empty")

// Play renders clip on the default playback device and blocks until the last
// sample has been handed to the device or ctx is done.
func Play(ctx context.Context, clip *Clip) error {
	if clip.Empty() {
		return ErrEmptyClip
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(mgCtx)

	devCnf := malgo.DefaultDeviceConfig(malgo.Playback)
	devCnf.Playback.Format = malgo.FormatS16
	devCnf.Playback.Channels = uint32(max(clip.Channels, 1))
	devCnf.SampleRate = uint32(clip.SampleRate)

	src := bytes.NewReader(clip.PCM)
	drained := make(chan struct{})
	var once sync.Once

	callBacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n, _ := io.ReadFull(src, out)
			clear(out[n:])
			if n < len(out) {
				once.Do(func() { close(drained) })
			}
		},
	}

	dev, err := malgo.InitDevice(mgCtx.Context, devCnf, callBacks)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo playback device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to start malgo playback device: %w", err)
	}

	slog.DebugContext(ctx, "playback started", "duration", clip.Duration())

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
