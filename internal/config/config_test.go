package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":4573", cfg.Listen)
	assert.Equal(t, "flows", cfg.FlowsDir)
	assert.Equal(t, "default", cfg.DefaultFlow)
	assert.Equal(t, 512, cfg.MaxSteps)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":4573", cfg.Listen)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxflow.yaml")
	body := `
listen: ":14573"
flows_dir: /etc/voxflow/flows
log_level: debug
max_steps: 64
redis:
  enabled: true
  addr: redis.local:6379
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":14573", cfg.Listen)
	assert.Equal(t, "/etc/voxflow/flows", cfg.FlowsDir)
	assert.Equal(t, 64, cfg.MaxSteps)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.local:6379", cfg.Redis.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXFLOW_LISTEN", ":24573")
	t.Setenv("VOXFLOW_REDIS_ENABLED", "true")
	t.Setenv("VOXFLOW_REDIS_DB", "3")
	t.Setenv("VOXFLOW_MAX_STEPS", "100")
	t.Setenv("VOXFLOW_HTTP_TIMEOUT", "30s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":24573", cfg.Listen)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 100, cfg.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestSlogLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		cfg := Config{LogLevel: name}
		assert.Equal(t, want, cfg.SlogLevel(), name)
	}
}
