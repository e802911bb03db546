package wizard

import (
	"fmt"
	"slices"
)

// Flow is one of the two wizard variants.
type Flow string

const (
	FlowText  Flow = "text"
	FlowAudio Flow = "audio"
)

// ParseFlow returns the Flow named by s.
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(s); f {
	case FlowText, FlowAudio:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
	}
}

// Methods returns the closed set of input methods for the flow, in display
// order.
func (f Flow) Methods() []Method {
	switch f {
	case FlowText:
		return []Method{MethodUpload, MethodURL, MethodPaste}
	case FlowAudio:
		return []Method{MethodUpload, MethodRecord}
	default:
		return nil
	}
}

// Supports reports whether m belongs to the flow.
func (f Flow) Supports(m Method) bool {
	return slices.Contains(f.Methods(), m)
}

func (f Flow) String() string { return string(f) }

// Method is how the user supplies content.
type Method string

const (
	MethodNone   Method = ""
	MethodUpload Method = "upload"
	MethodURL    Method = "url"
	MethodPaste  Method = "paste"
	MethodRecord Method = "record"
)

func (m Method) String() string { return string(m) }

// MethodInfo is display metadata for a method within a flow.
type MethodInfo struct {
	Method      Method
	Title       string
	Description string
	// Accept lists file extensions offered by pickers. It is a hint only.
	Accept []string
}

// Describe returns display metadata for m within the flow.
func (f Flow) Describe(m Method) MethodInfo {
	switch {
	case f == FlowText && m == MethodUpload:
		return MethodInfo{m, "Upload Document", "PDF, TXT, DOCX, MD files supported",
			[]string{".pdf", ".txt", ".docx", ".md"}}
	case f == FlowText && m == MethodURL:
		return MethodInfo{m, "Enter URL", "Translate web articles and pages", nil}
	case f == FlowText && m == MethodPaste:
		return MethodInfo{m, "Paste Text", "Direct text input for quick translation", nil}
	case f == FlowAudio && m == MethodUpload:
		return MethodInfo{m, "Upload Audio File", "MP3, WAV, M4A, OGG files supported",
			[]string{".mp3", ".wav", ".m4a", ".ogg"}}
	case f == FlowAudio && m == MethodRecord:
		return MethodInfo{m, "Record Audio", "Live recording with your microphone", nil}
	default:
		return MethodInfo{Method: m, Title: string(m)}
	}
}

// Step is a 1-based position in the wizard.
type Step int

const (
	StepMethod Step = iota + 1
	StepContent
	StepConfigure
	StepResults
)

// NumSteps is the length of every flow.
const NumSteps = int(StepResults)

func (s Step) String() string {
	switch s {
	case StepMethod:
		return "Method"
	case StepContent:
		return "Content"
	case StepConfigure:
		return "Configure"
	case StepResults:
		return "Results"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}
