package audio

import "errors"

// DefaultBufferThreshold is 4KB = 2048 mono samples = 128ms @ 16kHz.
const DefaultBufferThreshold = 4096

// EncoderConfig configures the MP3 streaming encoder.
type EncoderConfig struct {
	SampleRate int
	// Channels must be 1. The encoder upmixes to stereo internally.
	Channels int
	// BufferThreshold is the number of PCM bytes accumulated per encode call.
	BufferThreshold int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.New("sample rate must be positive")
	case c.Channels != 1:
		return errors.New("only mono (1 channel) is supported")
	case c.BufferThreshold <= 0:
		return errors.New("buffer threshold must be positive")
	}

	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}
