package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alkime/saywhat/pkg/collections"
)

// Clip is a finalized unit of recorded mono S16LE audio.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// NewClip concatenates captured chunks, in order, into a single clip.
func NewClip(sampleRate int, chunks ...DataPacket) *Clip {
	return &Clip{
		PCM:        collections.Concat(chunks...),
		SampleRate: sampleRate,
		Channels:   DefaultChannels,
	}
}

// Len returns the clip size in bytes.
func (c *Clip) Len() int {
	if c == nil {
		return 0
	}

	return len(c.PCM)
}

// Empty reports whether the clip holds no samples.
func (c *Clip) Empty() bool {
	return c.Len() < BytesPerSample
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}

	frames := len(c.PCM) / (BytesPerSample * max(c.Channels, 1))

	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// WriteMP3 encodes the clip as MP3 into w.
func (c *Clip) WriteMP3(ctx context.Context, w io.Writer) error {
	if c.Empty() {
		return fmt.Errorf("write mp3: clip is empty")
	}

	input := make(chan DataPacket, 1)
	enc, err := NewStreamingEncoder(EncoderConfig{SampleRate: c.SampleRate}.WithDefaults(), input, w)
	if err != nil {
		return fmt.Errorf("write mp3: %w", err)
	}

	if err := enc.Start(ctx); err != nil {
		return fmt.Errorf("write mp3: %w", err)
	}

	input <- c.PCM
	close(input)

	if err := enc.Wait(); err != nil {
		return fmt.Errorf("write mp3: %w", err)
	}

	return nil
}
