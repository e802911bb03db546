package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Prefs are per-user defaults for the terminal wizard.
type Prefs struct {
	Backend  Backend `toml:"backend"`
	Language string  `toml:"language"`
	Tone     string  `toml:"tone"`
	// ExportDir overrides where results are written.
	ExportDir string `toml:"export_dir"`
	// Device names the capture device. Empty uses the system default.
	Device string `toml:"device"`
}

// DefaultPrefs returns the preferences used when no file exists.
func DefaultPrefs() Prefs {
	return Prefs{
		Backend: BackendSimulated,
		Tone:    "formal",
	}
}

// PrefsPath returns ~/.config/saywhat/config.toml, honoring XDG_CONFIG_HOME.
func PrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}

	return filepath.Join(dir, "saywhat", "config.toml"), nil
}

// LoadPrefs reads preferences from path. A missing file yields defaults.
func LoadPrefs(path string) (Prefs, error) {
	prefs := DefaultPrefs()

	if _, err := toml.DecodeFile(path, &prefs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultPrefs(), nil
		}

		return Prefs{}, fmt.Errorf("failed to read preferences %s: %w", path, err)
	}

	switch prefs.Backend {
	case BackendSimulated, BackendRemote:
	case "":
		prefs.Backend = BackendSimulated
	default:
		return Prefs{}, fmt.Errorf("invalid backend %q in %s", prefs.Backend, path)
	}

	return prefs, nil
}

// SavePrefs writes preferences to path, creating parent directories.
func SavePrefs(path string, prefs Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write preferences %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(prefs); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	return nil
}
