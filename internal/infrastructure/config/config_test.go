package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8765", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "assets", cfg.Scene.AssetRoot)
	assert.Equal(t, "history/undo_history.json", cfg.History.Path)
	assert.Equal(t, 10, cfg.History.SaveEvery)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("REWIND_SERVER_PORT", "9100")
	t.Setenv("REWIND_HISTORY_SAVE_EVERY", "25")
	t.Setenv("REWIND_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 25, cfg.History.SaveEvery)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Server]
port = "9999"

[History]
save_every = 5
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5, cfg.History.SaveEvery)
	// Untouched sections keep their defaults.
	assert.Equal(t, "assets", cfg.Scene.AssetRoot)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[["), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8765", cfg.Server.Port)
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerSecond)
}
