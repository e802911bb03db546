package audio

import (
	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is 16kHz, the native sample rate for Whisper.
	DefaultSampleRate = 16000
	// DefaultChannels is mono (1 channel).
	DefaultChannels = 1
	// BytesPerSample is the width of one S16LE sample.
	BytesPerSample = 2
)

// DeviceConfig configures a capture device. Only S16 mono capture is
// produced by the rest of the package.
type DeviceConfig struct {
	Format          malgo.FormatType
	CaptureChannels int
	SampleRate      int
	// DeviceName selects a capture device by name. Empty uses the default.
	DeviceName string
}

// DefaultDeviceConfig returns 16kHz mono S16 capture on the default device.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: DefaultChannels,
		SampleRate:      DefaultSampleRate,
	}
}
