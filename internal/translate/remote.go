package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alkime/saywhat/internal/wizard"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
)

// maxFetchBytes caps URL payload downloads.
const maxFetchBytes = 2 << 20

const translationTool = "save_translation"

// RemoteConfig configures the remote backend.
type RemoteConfig struct {
	OpenAIKey    string
	AnthropicKey string
	// OpenAIBaseURL and AnthropicBaseURL override service endpoints.
	OpenAIBaseURL    string
	AnthropicBaseURL string
	// MaxRetries applies to API calls and URL fetches.
	MaxRetries int
}

// Remote translates with Anthropic, transcribes and synthesizes with OpenAI
// and fetches URL payloads over HTTP.
type Remote struct {
	openai    openai.Client
	anthropic anthropic.Client
	fetcher   *retryablehttp.Client
	model     anthropic.Model
}

// NewRemote validates keys and builds API clients.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.AnthropicKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY or store it with `saywhat config set-key`")
	}

	if cfg.OpenAIKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY or store it with `saywhat config set-key`")
	}

	oaOpts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(cfg.OpenAIKey),
		openaiopt.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.OpenAIBaseURL != "" {
		oaOpts = append(oaOpts, openaiopt.WithBaseURL(cfg.OpenAIBaseURL))
	}

	anOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(cfg.AnthropicKey),
		anthropicopt.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.AnthropicBaseURL != "" {
		anOpts = append(anOpts, anthropicopt.WithBaseURL(cfg.AnthropicBaseURL))
	}

	fetcher := retryablehttp.NewClient()
	fetcher.RetryMax = cfg.MaxRetries
	fetcher.RetryWaitMin = 200 * time.Millisecond
	fetcher.Logger = slog.Default()

	return &Remote{
		openai:    openai.NewClient(oaOpts...),
		anthropic: anthropic.NewClient(anOpts...),
		fetcher:   fetcher,
		model:     anthropic.ModelClaudeSonnet4_5_20250929,
	}, nil
}

// Process runs source extraction, translation and the optional outputs in
// sequence, reporting progress between stages.
func (r *Remote) Process(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	progress.report(req.Flow, 0)

	res := &Result{}

	source, err := r.source(ctx, req, res)
	if err != nil {
		return nil, err
	}

	progress.report(req.Flow, 50)

	tr, err := r.translate(ctx, req, source)
	if err != nil {
		return nil, err
	}

	res.SourceLanguage = tr.SourceLanguage
	res.Translation = tr.Translation
	if req.Features.Summarize {
		res.Summary = tr.Summary
	}

	progress.report(req.Flow, 75)

	if req.Features.GenerateBanner {
		if res.BannerURL, err = r.banner(ctx, res); err != nil {
			return nil, err
		}
	}

	if req.Features.GenerateAudio {
		if res.Audio, err = r.speech(ctx, res.Translation); err != nil {
			return nil, err
		}
		res.AudioMIMEType = "audio/mpeg"
	}

	progress.report(req.Flow, 100)

	return res, nil
}

// source returns the text to translate. Audio is transcribed into res.
func (r *Remote) source(ctx context.Context, req Request, res *Result) (string, error) {
	switch p := req.Payload.(type) {
	case wizard.TextPayload:
		return p.Text, nil

	case wizard.URLPayload:
		return r.fetch(ctx, strings.TrimSpace(p.URL))

	case wizard.FilePayload:
		if req.Flow == wizard.FlowAudio {
			return r.transcribe(ctx, bytes.NewReader(p.Data), filepath.Base(p.Name), mimeFor(p.Name), res)
		}

		if !utf8.Valid(p.Data) {
			return "", fmt.Errorf("document %q is not UTF-8 text", p.Name)
		}

		return string(p.Data), nil

	case wizard.ClipPayload:
		return r.transcribe(ctx, bytes.NewReader(p.Data), "recording.mp3", p.MIMEType, res)

	default:
		return "", fmt.Errorf("%w: unsupported payload %T", ErrIncompleteRequest, req.Payload)
	}
}

func (r *Remote) fetch(ctx context.Context, url string) (string, error) {
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %q: %w", url, err)
	}

	resp, err := r.fetcher.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %q: status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", url, err)
	}

	return string(body), nil
}

type verboseTranscript struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (r *Remote) transcribe(ctx context.Context, audio io.Reader, name, mimeType string, res *Result) (string, error) {
	resp, err := r.openai.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(audio, name, mimeType),
		Model:          openai.AudioModelWhisper1,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	var verbose verboseTranscript
	if raw := resp.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &verbose); err != nil {
			slog.WarnContext(ctx, "failed to parse transcript segments", "error", err)
		}
	}

	res.Duration = time.Duration(verbose.Duration * float64(time.Second))
	for _, s := range verbose.Segments {
		res.Transcript = append(res.Transcript, Segment{
			Start: time.Duration(s.Start * float64(time.Second)),
			Text:  strings.TrimSpace(s.Text),
		})
	}

	if len(res.Transcript) == 0 && resp.Text != "" {
		res.Transcript = []Segment{{Text: strings.TrimSpace(resp.Text)}}
	}

	return resp.Text, nil
}

type translationToolInput struct {
	SourceLanguage string `json:"source_language"`
	Translation    string `json:"translation"`
	Summary        string `json:"summary"`
}

func translationToolParam() anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: "object",
		Properties: map[string]any{
			"source_language": map[string]any{
				"type":        "string",
				"description": "English name of the detected source language",
			},
			"translation": map[string]any{
				"type":        "string",
				"description": "The complete translated markdown",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "Summary of the translation, or empty",
			},
		},
		Required: []string{"source_language", "translation", "summary"},
	}

	tool := anthropic.ToolUnionParamOfTool(schema, translationTool)
	tool.OfTool.Description = anthropic.String("Save the translated content, its summary and the detected source language")

	return tool
}

func (r *Remote) translate(ctx context.Context, req Request, source string) (*translationToolInput, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("nothing to translate: source content is empty")
	}

	resp, err := r.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: translateSystemPrompt(req.Language, req.Tone, req.Features.Summarize)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(source)),
		},
		Tools:      []anthropic.ToolUnionParam{translationToolParam()},
		ToolChoice: anthropic.ToolChoiceParamOfTool(translationTool),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to translate via Anthropic API: %w", err)
	}

	for _, block := range resp.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != translationTool {
			continue
		}

		raw, err := json.Marshal(toolUse.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool input: %w", err)
		}

		var input translationToolInput
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("failed to parse tool input: %w", err)
		}

		return &input, nil
	}

	return nil, errors.New("no tool use found in Anthropic API response")
}

func (r *Remote) banner(ctx context.Context, res *Result) (string, error) {
	resp, err := r.openai.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         bannerPrompt(res.Summary, res.Translation),
		Model:          openai.ImageModelDallE3,
		Size:           openai.ImageGenerateParamsSize1792x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
		N:              openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate banner: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", errors.New("failed to generate banner: empty response")
	}

	return resp.Data[0].URL, nil
}

func (r *Remote) speech(ctx context.Context, text string) ([]byte, error) {
	resp, err := r.openai.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoiceAlloy,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized speech: %w", err)
	}

	return audio, nil
}

// Answer replies to question using only content.
func (r *Remote) Answer(ctx context.Context, question, content string) (string, error) {
	resp, err := r.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: answerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock("<document>\n"+content+"\n</document>"),
				anthropic.NewTextBlock(question),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to answer via Anthropic API: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("empty response from Anthropic API")
	}

	return sb.String(), nil
}

func mimeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
