package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/saywhat/internal/config"
)

// Level resolves the log level from the environment settings.
func Level(cfg *config.Config) slog.Level {
	if cfg.Env == config.EnvDevelopment || cfg.LogLevel == "debug" {
		return slog.LevelDebug
	}

	switch cfg.LogLevel {
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger configures JSON structured logging for the server and installs
// it as the default logger.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return install(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: Level(cfg),
	}))
}

// SetupCLILogger writes human-readable logs to stderr.
func SetupCLILogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return install(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetupFileLogger sends logs to a file while a full-screen UI owns the
// terminal. The returned closer flushes and closes the file.
func SetupFileLogger(path string, verbose bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return install(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

func install(handler slog.Handler) *slog.Logger {
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
