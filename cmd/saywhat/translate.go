package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/alkime/saywhat/internal/workdir"
	"github.com/dustin/go-humanize"
)

// TranslateCmd runs one translation without the wizard.
type TranslateCmd struct {
	BackendFlags

	Input      string `arg:"" help:"Text or audio file, http(s) URL, or '-' for stdin"`
	To         string `short:"t" required:"" help:"Target language code (es, fr, de, ...)"`
	Tone       string `flag:"" default:"formal" enum:"formal,informal,technical,conversational" help:"Translation tone"`
	Summarize  bool   `flag:"" help:"Add a summary"`
	Banner     bool   `flag:"" help:"Generate a banner image"`
	Speech     bool   `flag:"" help:"Synthesize translated audio"`
	Timestamps bool   `flag:"" help:"Include timestamps in audio transcripts"`
	Export     bool   `flag:"" help:"Write results to the export directory"`
	ExportDir  string `flag:"" optional:"" help:"Export directory override"`
}

// Run executes the translate command.
func (c *TranslateCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prefs, err := loadPrefs()
	if err != nil {
		return err
	}

	wiz, err := c.wizard()
	if err != nil {
		return err
	}

	req, err := translate.NewRequest(wiz.Flow(), wiz.State())
	if err != nil {
		return err
	}

	processor, _, err := c.newBackend(prefs)
	if err != nil {
		return err
	}

	manager := jobs.NewManager(processor)
	defer manager.Close()

	job, err := manager.Submit(ctx, req)
	if err != nil {
		return err
	}

	updates, stopWatch, err := manager.Watch(job.ID)
	if err != nil {
		return err
	}
	defer stopWatch()

	stage := ""
	for job = range updates {
		if job.Progress.Stage != stage {
			stage = job.Progress.Stage
			fmt.Fprintf(os.Stderr, "%3d%% %s\n", job.Progress.Percent, stage)
		}
	}

	switch job.Status {
	case jobs.StatusCompleted:
	case jobs.StatusCancelled:
		return errors.New("translation cancelled")
	default:
		return fmt.Errorf("translation failed: %s", job.Error)
	}

	printResult(os.Stdout, job)

	if !c.Export {
		return nil
	}

	return c.export(wiz, job, prefs)
}

// wizard builds the flow state for Input, validating each setting the same
// way the interactive wizard does.
func (c *TranslateCmd) wizard() (*wizard.Wizard, error) {
	flow, method, payload, err := c.payload()
	if err != nil {
		return nil, err
	}

	wiz := wizard.New(flow)
	if err := wiz.SelectMethod(method); err != nil {
		return nil, err
	}

	if err := wiz.SetPayload(payload); err != nil {
		return nil, err
	}

	if err := wiz.SetTargetLanguage(c.To); err != nil {
		return nil, err
	}

	if err := wiz.SetTone(wizard.Tone(c.Tone)); err != nil {
		return nil, err
	}

	err = wiz.SetFeatures(wizard.Features{
		Summarize:         c.Summarize,
		GenerateBanner:    c.Banner,
		GenerateAudio:     c.Speech,
		IncludeTimestamps: c.Timestamps,
	})
	if err != nil {
		return nil, err
	}

	return wiz, nil
}

func (c *TranslateCmd) payload() (wizard.Flow, wizard.Method, wizard.Payload, error) {
	switch {
	case c.Input == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}

		return wizard.FlowText, wizard.MethodPaste, wizard.TextPayload{Text: string(data)}, nil

	case strings.HasPrefix(c.Input, "http://"), strings.HasPrefix(c.Input, "https://"):
		return wizard.FlowText, wizard.MethodURL, wizard.URLPayload{URL: c.Input}, nil
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read input: %w", err)
	}

	slog.Debug("read input", "path", c.Input, "size", humanize.Bytes(uint64(len(data))))

	flow := wizard.FlowText
	accepted := wizard.FlowAudio.Describe(wizard.MethodUpload).Accept
	if slices.Contains(accepted, strings.ToLower(filepath.Ext(c.Input))) {
		flow = wizard.FlowAudio
	}

	return flow, wizard.MethodUpload, wizard.FilePayload{
		Name: filepath.Base(c.Input),
		Path: c.Input,
		Data: data,
	}, nil
}

func printResult(w io.Writer, job jobs.Job) {
	res := job.Result

	fmt.Fprintf(w, "Detected source: %s\n\n", res.SourceLanguage)

	if res.Summary != "" {
		fmt.Fprintf(w, "## Summary\n\n%s\n\n", res.Summary)
	}

	fmt.Fprintln(w, res.Translation)

	if res.BannerURL != "" {
		fmt.Fprintf(w, "\nBanner: %s\n", res.BannerURL)
	}

	if len(res.Audio) > 0 {
		fmt.Fprintf(w, "Audio: %s %s\n", humanize.Bytes(uint64(len(res.Audio))), res.AudioMIMEType)
	}
}

func (c *TranslateCmd) export(wiz *wizard.Wizard, job jobs.Job, prefs config.Prefs) error {
	dir, err := workdir.ExportDir(firstNonEmpty(c.ExportDir, prefs.ExportDir))
	if err != nil {
		return err
	}

	exporter := workdir.NewExporter(dir, time.Now())
	res := job.Result

	paths := make([]string, 0, 3)

	path, err := exporter.Translation(res, job.Request.Language.Name)
	if err != nil {
		return err
	}
	paths = append(paths, path)

	if len(res.Transcript) > 0 {
		if path, err = exporter.Transcript(res, wiz.State().Features.IncludeTimestamps); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	if len(res.Audio) > 0 {
		if path, err = exporter.Audio(res.Audio); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	for _, p := range paths {
		fmt.Fprintf(os.Stderr, "saved %s\n", p)
	}

	return nil
}
