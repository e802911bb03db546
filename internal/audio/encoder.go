package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// StreamingEncoder reads raw S16LE PCM packets from a channel, batches them
// up to a threshold and writes MP3 frames to an io.Writer.
//
// Encoding runs in its own goroutine until the input channel is closed or the
// context is cancelled; Wait returns the first error encountered.
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan DataPacket
	output io.Writer

	encoder *mp3encoder.Encoder
	pending []byte

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder validates config and returns an encoder ready to Start.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan DataPacket,
	output io.Writer,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{
		config:  config,
		input:   input,
		output:  output,
		pending: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// Start launches the encoding goroutine.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	// shine-mp3 mis-advances its read offset for mono input, so frames are
	// always encoded as stereo with duplicated channels.
	e.encoder = mp3encoder.NewEncoder(e.config.SampleRate, 2)

	e.wg.Go(func() {
		defer func() {
			if err := e.flush(); err != nil {
				e.setError(fmt.Errorf("failed to flush encoder on shutdown: %w", err))
			}
		}()

		for {
			select {
			case packet, ok := <-e.input:
				if !ok {
					return
				}

				e.pending = append(e.pending, packet...)
				if len(e.pending) < e.config.BufferThreshold {
					continue
				}

				if err := e.flush(); err != nil {
					e.setError(err)
					return
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// flush encodes whatever PCM is pending.
func (e *StreamingEncoder) flush() error {
	mono := BytesToInt16(e.pending)
	if len(mono) == 0 {
		return nil
	}

	stereo := make([]int16, len(mono)*2)
	for i, sample := range mono {
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	slog.Debug("encoded MP3 batch", "samples", len(mono))

	e.pending = e.pending[:0]

	return nil
}

// Wait blocks until encoding completes and returns any error that occurred.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
	})
}
