package wizard

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Payload is the captured content. Exactly one concrete kind exists per
// method; the wizard stores at most one.
type Payload interface {
	// Method is the input method this payload belongs to.
	Method() Method
	// Valid reports whether the payload is complete enough to advance.
	Valid() bool
}

// TextPayload is pasted free-form text.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) Method() Method { return MethodPaste }
func (p TextPayload) Valid() bool  { return strings.TrimSpace(p.Text) != "" }

// URLPayload references a remote page. No well-formedness check is applied.
type URLPayload struct {
	URL string `json:"url"`
}

func (URLPayload) Method() Method { return MethodURL }
func (p URLPayload) Valid() bool  { return strings.TrimSpace(p.URL) != "" }

// FilePayload is a picked or uploaded file.
type FilePayload struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`
}

func (FilePayload) Method() Method { return MethodUpload }
func (p FilePayload) Valid() bool  { return p.Name != "" }

// Size returns the file size in bytes.
func (p FilePayload) Size() int { return len(p.Data) }

// ClipPayload is a finalized recording, encoded and ready for playback.
type ClipPayload struct {
	Data     []byte        `json:"-"`
	MIMEType string        `json:"mimeType"`
	Duration time.Duration `json:"duration"`
}

func (ClipPayload) Method() Method { return MethodRecord }
func (p ClipPayload) Valid() bool  { return len(p.Data) > 0 }

// CharCount is the number of characters in s, surrounding whitespace included.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// WordCount is the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
