package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alkime/saywhat/internal/audio"
	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/keyring"
	"github.com/alkime/saywhat/internal/logger"
	"github.com/alkime/saywhat/internal/qa"
	"github.com/alkime/saywhat/internal/recording"
	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/tui"
	"github.com/alkime/saywhat/internal/tui/workflow"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/alkime/saywhat/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Globals are flags shared by every command.
type Globals struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
}

// CLI defines the saywhat command structure.
type CLI struct {
	Globals

	// Default TUI command (runs when no subcommand given)
	TUI       TUICmd       `cmd:"" default:"withargs" help:"Launch the translation wizard"`
	Translate TranslateCmd `cmd:"" help:"Translate a file, URL or stdin without the wizard"`
	Devices   DevicesCmd   `cmd:"" help:"List available audio capture devices"`
	Config    ConfigCmd    `cmd:"" help:"Manage configuration"`
}

// BackendFlags select and authenticate the translation backend.
type BackendFlags struct {
	Backend         string `flag:"" enum:",simulated,remote" default:"" help:"Translation backend (simulated or remote); defaults to preferences"`
	OpenAIAPIKey    string `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for transcription, speech and banners"`
	AnthropicAPIKey string `flag:"" env:"ANTHROPIC_API_KEY" help:"Anthropic API key for translation and Q&A"`
}

// newBackend builds the processor and answerer for the selected backend.
// Flag values win over preferences; API keys fall back to the keychain.
func (b BackendFlags) newBackend(prefs config.Prefs) (translate.Processor, translate.Answerer, error) {
	kind := config.Backend(b.Backend)
	if kind == "" {
		kind = prefs.Backend
	}

	switch kind {
	case config.BackendRemote:
		remote, err := translate.NewRemote(translate.RemoteConfig{
			OpenAIKey:    keyring.Resolve(keyring.OpenAI, b.OpenAIAPIKey),
			AnthropicKey: keyring.Resolve(keyring.Anthropic, b.AnthropicAPIKey),
			MaxRetries:   2,
		})
		if err != nil {
			return nil, nil, err
		}

		return remote, remote, nil

	default:
		slog.Debug("using simulated backend")
		return &translate.Simulator{}, translate.CannedAnswerer{}, nil
	}
}

func loadPrefs() (config.Prefs, error) {
	path, err := config.PrefsPath()
	if err != nil {
		return config.Prefs{}, err
	}

	return config.LoadPrefs(path)
}

// TUICmd is the default command that runs the wizard.
type TUICmd struct {
	BackendFlags

	Flow      string `arg:"" optional:"" enum:"text,audio" default:"text" help:"Wizard flow (text or audio)"`
	ExportDir string `flag:"" optional:"" help:"Directory for exported results (default: ~/Documents/Alkime/SayWhat/exports)"`
	Device    string `flag:"" optional:"" help:"Capture device name (default: system default)"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(globals *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("the wizard needs an interactive terminal; use 'saywhat translate' instead")
	}

	logPath, err := workdir.LogPath()
	if err != nil {
		return err
	}

	_, closer, err := logger.SetupFileLogger(logPath, globals.Verbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	prefs, err := loadPrefs()
	if err != nil {
		return err
	}

	flow, err := wizard.ParseFlow(c.Flow)
	if err != nil {
		return err
	}

	processor, answerer, err := c.newBackend(prefs)
	if err != nil {
		return err
	}

	manager := jobs.NewManager(processor)
	defer manager.Close()

	wiz := wizard.New(flow)
	applyPrefs(wiz, prefs)

	devConf := audio.DefaultDeviceConfig()
	devConf.DeviceName = firstNonEmpty(c.Device, prefs.Device)

	startDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	exportDir, err := workdir.ExportDir(firstNonEmpty(c.ExportDir, prefs.ExportDir))
	if err != nil {
		return err
	}

	deps := workflow.Deps{
		Jobs:       manager,
		Answerer:   answerer,
		Microphone: recording.Exclusive(recording.DeviceOpener(devConf)),
		Recording:  recording.Config{SampleRate: devConf.SampleRate},
		Clipboard:  workflow.SystemClipboard{},
		Player:     audio.Play,
		ExportDir:  exportDir,
		StartDir:   startDir,
		ReplyDelay: qa.DefaultReplyDelay,
	}

	slog.Info("wizard starting", "flow", flow, "exportDir", deps.ExportDir, "device", devConf.DeviceName)

	p := tea.NewProgram(tui.New(wiz, deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run wizard: %w", err)
	}

	fmt.Println("bye!")

	return nil
}

// applyPrefs pre-fills the configure step. Invalid preferences are logged
// and skipped.
func applyPrefs(wiz *wizard.Wizard, prefs config.Prefs) {
	if err := wiz.SetTargetLanguage(prefs.Language); err != nil {
		slog.Warn("ignoring language preference", "error", err)
	}

	if prefs.Tone != "" {
		if err := wiz.SetTone(wizard.Tone(prefs.Tone)); err != nil {
			slog.Warn("ignoring tone preference", "error", err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	devices, err := audio.NewDevice(nil).EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return nil
	}

	for _, dev := range devices {
		marker := " "
		if dev.IsDefault {
			marker = "*"
		}

		fmt.Printf("%s %s (%d formats)\n", marker, dev.Name, dev.FormatCount)
		for _, f := range dev.Formats {
			fmt.Printf("    %s\n", f)
		}
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey    SetKeyCmd    `cmd:"" help:"Store an API key in system keychain"`
	DeleteKey DeleteKeyCmd `cmd:"" help:"Remove an API key from system keychain"`
	ListKeys  ListKeysCmd  `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
	Init      InitCmd      `cmd:"" help:"Write a default preferences file"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// DeleteKeyCmd removes an API key from the system keychain.
type DeleteKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
}

// Run executes the delete-key command.
func (c *DeleteKeyCmd) Run() error {
	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Delete(apiKey); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	fmt.Printf("%s API key removed\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'saywhat config set-key <service> <key>' to configure.")
	}

	return nil
}

// InitCmd writes the default preferences file.
type InitCmd struct {
	Force bool `flag:"" help:"Overwrite an existing file"`
}

// Run executes the init command.
func (c *InitCmd) Run() error {
	path, err := config.PrefsPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	}

	if err := config.SavePrefs(path, config.DefaultPrefs()); err != nil {
		return err
	}

	fmt.Printf("preferences written to %s\n", path)

	return nil
}

func main() {
	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("saywhat"),
		kong.Description("Translate text and audio from the terminal."),
		kong.Bind(&cli.Globals),
	)

	logger.SetupCLILogger(cli.Verbose)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
