package logger_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.Level(&config.Config{Env: "development", LogLevel: "info"}))
	assert.Equal(t, slog.LevelInfo, logger.Level(&config.Config{Env: "production", LogLevel: "info"}))
	assert.Equal(t, slog.LevelDebug, logger.Level(&config.Config{Env: "production", LogLevel: "debug"}))
	assert.Equal(t, slog.LevelWarn, logger.Level(&config.Config{Env: "production", LogLevel: "warn"}))
}

func TestSetupFileLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "saywhat.log")
	log, closer, err := logger.SetupFileLogger(path, false)
	require.NoError(t, err)

	log.Debug("hidden")
	slog.Info("recorded", "step", 2)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=recorded step=2")
	assert.NotContains(t, string(data), "hidden")
}
