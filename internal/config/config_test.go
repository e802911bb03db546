package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/saywhat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.BackendSimulated, cfg.Backend)
	assert.Equal(t, "relaxed", cfg.CSPMode)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.JobRetention)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("BACKEND", "remote")
	t.Setenv("PORT", "9090")
	t.Setenv("JOB_RETENTION", "15m")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.JobRetention)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.BackendRemote, cfg.Backend)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CSP_MODE=strict\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CSP_MODE") })

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.CSPMode)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BACKEND", "magic")

	_, err := config.LoadConfig()
	require.ErrorContains(t, err, "invalid BACKEND")
}

func TestBuildCSP(t *testing.T) {
	assert.Contains(t, config.BuildCSP("strict"), "object-src 'none'")
	assert.Contains(t, config.BuildCSP("relaxed"), "'unsafe-inline'")
	assert.Contains(t, config.BuildCSP("relaxed"), "connect-src 'self' ws: wss:")
}

func TestPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	prefs, err := config.LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPrefs(), prefs)

	prefs.Language = "pt"
	prefs.Backend = config.BackendRemote
	prefs.ExportDir = "/tmp/out"
	require.NoError(t, config.SavePrefs(path, prefs))

	loaded, err := config.LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, prefs, loaded)

	require.NoError(t, os.WriteFile(path, []byte(`backend = "cloud"`), 0o600))
	_, err = config.LoadPrefs(path)
	require.ErrorContains(t, err, "invalid backend")

	require.NoError(t, os.WriteFile(path, []byte(`language = "ja"`), 0o600))
	partial, err := config.LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, "formal", partial.Tone, "unset keys keep defaults")
	assert.Equal(t, "ja", partial.Language)
}
