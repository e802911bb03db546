// Package workdir manages the saywhat working directory: logs and exported
// translation artifacts.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alkime/saywhat/internal/translate"
)

// Root returns the base directory for all saywhat working files.
// The path is expanded at runtime to resolve to:
//
//	$HOME/Documents/Alkime/SayWhat
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Alkime", "SayWhat"), nil
}

// ExportDir returns override when set, otherwise the exports folder under Root.
func ExportDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "exports"), nil
}

// LogPath returns the TUI log file location.
func LogPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "logs", "saywhat.log"), nil
}

// Prep ensures that dir exists.
func Prep(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create working directory %s: %w", dir, err)
	}

	return nil
}

// Exporter writes result artifacts into Dir. File names share one timestamped
// prefix per Exporter so the artifacts of one run sort together.
type Exporter struct {
	Dir    string
	prefix string
}

// NewExporter creates an Exporter stamped with at.
func NewExporter(dir string, at time.Time) *Exporter {
	return &Exporter{
		Dir:    dir,
		prefix: "saywhat-" + at.Format("20060102-150405"),
	}
}

// Translation writes the translation and optional summary as markdown.
func (e *Exporter) Translation(res *translate.Result, language string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Translation (%s)\n\n", language)
	if res.SourceLanguage != "" {
		fmt.Fprintf(&b, "_Detected source language: %s_\n\n", res.SourceLanguage)
	}
	b.WriteString(strings.TrimSpace(res.Translation))
	b.WriteString("\n")

	if res.Summary != "" {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(strings.TrimSpace(res.Summary))
		b.WriteString("\n")
	}

	return e.write("translation.md", []byte(b.String()))
}

// Transcript writes the original transcript as plain text.
func (e *Exporter) Transcript(res *translate.Result, timestamps bool) (string, error) {
	if len(res.Transcript) == 0 {
		return "", fmt.Errorf("export transcript: result has no transcript")
	}

	return e.write("transcript.txt", []byte(res.TranscriptText(timestamps)+"\n"))
}

// Audio writes synthesized speech as MP3.
func (e *Exporter) Audio(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("export audio: no audio data")
	}

	return e.write("audio.mp3", data)
}

// Recording writes the captured microphone clip as MP3.
func (e *Exporter) Recording(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("export recording: no audio data")
	}

	return e.write("recording.mp3", data)
}

func (e *Exporter) write(suffix string, data []byte) (string, error) {
	if err := Prep(e.Dir); err != nil {
		return "", err
	}

	path := filepath.Join(e.Dir, e.prefix+"-"+suffix)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
