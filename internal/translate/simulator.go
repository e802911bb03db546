package translate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/saywhat/internal/wizard"
)

// Pace is a simulated progress rate.
type Pace struct {
	Step     int
	Interval time.Duration
}

// DefaultPace returns the simulated progress rate for a flow.
func DefaultPace(flow wizard.Flow) Pace {
	if flow == wizard.FlowAudio {
		return Pace{Step: 8, Interval: 400 * time.Millisecond}
	}

	return Pace{Step: 10, Interval: 300 * time.Millisecond}
}

// Simulator is a deterministic stand-in for a translation backend. It counts
// progress up at a fixed pace and then returns a static placeholder.
type Simulator struct {
	// Pace overrides DefaultPace when set.
	Pace func(wizard.Flow) Pace
}

func (s *Simulator) pace(flow wizard.Flow) Pace {
	if s.Pace != nil {
		return s.Pace(flow)
	}

	return DefaultPace(flow)
}

func (s *Simulator) Process(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	pace := s.pace(req.Flow)
	if pace.Step <= 0 || pace.Interval <= 0 {
		return nil, fmt.Errorf("simulator: invalid pace %+v", pace)
	}

	ticker := time.NewTicker(pace.Interval)
	defer ticker.Stop()

	percent := 0
	progress.report(req.Flow, percent)

	for percent < 100 {
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}

		if err := ctx.Err(); err != nil {
			slog.DebugContext(ctx, "simulated translation cancelled", "percent", percent)
			return nil, err
		}

		percent = min(percent+pace.Step, 100)
		progress.report(req.Flow, percent)
	}

	return placeholderResult(req), nil
}

var placeholderTranscript = []Segment{
	{0, "Welcome to this audio recording."},
	{5 * time.Second, "Today we'll be discussing the importance of language translation."},
	{12 * time.Second, "Translation helps bridge communication gaps across cultures."},
	{20 * time.Second, "It enables global collaboration and understanding."},
}

const placeholderDuration = 2*time.Minute + 34*time.Second

func placeholderResult(req Request) *Result {
	res := &Result{SourceLanguage: "English"}

	if req.Flow == wizard.FlowAudio {
		res.Transcript = append([]Segment(nil), placeholderTranscript...)
		res.Duration = placeholderDuration
		if clip, ok := req.Payload.(wizard.ClipPayload); ok && clip.Duration > 0 {
			res.Duration = clip.Duration
		}

		res.Translation = fmt.Sprintf(`# Translated Audio Content

This is a sample translation of your audio content. A configured translation backend replaces it with the transcribed and translated text.

## Translation Details

- **Duration**: %s
- **Detected Language**: %s
- **Target Language**: %s
- **Tone**: %s

## Full Translation

%s`, res.Duration.Round(time.Second), res.SourceLanguage, req.Language.Name, req.Tone, res.TranscriptText(false))

		if req.Features.Summarize {
			res.Summary = "This audio discusses the importance of language translation in bridging " +
				"communication gaps and enabling global collaboration."
		}
	} else {
		res.Translation = fmt.Sprintf(`# Translated Content

This is a sample translation of your content. A configured translation backend replaces it with the translated text.

The translation maintains the original meaning while adapting to the target language and tone you selected.

## Key Points

- Professional translation quality
- Maintains context and nuance
- Adapted to %s tone
- Translated to %s`, req.Tone, req.Language.Name)

		if req.Features.Summarize {
			res.Summary = "This is a concise summary of the translated content, highlighting the main " +
				"points and key takeaways."
		}
	}

	if req.Features.GenerateBanner {
		res.BannerURL = "https://placehold.co/1792x1024?text=" + req.Language.Code
	}

	return res
}

// CannedAnswerer replies with a fixed answer that quotes the question.
type CannedAnswerer struct{}

func (CannedAnswerer) Answer(_ context.Context, question, _ string) (string, error) {
	return fmt.Sprintf("Based on the translated content, here's my answer: This is a simulated "+
		"response to your question %q. A configured answer backend grounds its reply in the "+
		"translated content.", question), nil
}
