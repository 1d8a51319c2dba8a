package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv(ConfigEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, -64, cfg.World.MinY)
	assert.Equal(t, 320, cfg.World.MaxY)
	assert.Equal(t, "inverted", cfg.Memory.Polarity)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxelmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9000
world:
  min_y: 0
  max_y: 4
storage:
  backend: badger
  autosave_seconds: 5
ratelimit:
  rps: 10
  burst: 20
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GetHTTPPort())
	assert.Equal(t, 0, cfg.World.MinY)
	assert.Equal(t, 4, cfg.World.MaxY)
	assert.Equal(t, 16, cfg.World.Width, "незаданные поля берутся из Default")
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Storage.AutosaveInterval())
	assert.Equal(t, 10.0, cfg.RateLimit.RPS)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge:\n  tps: 40\n"), 0644))
	t.Setenv(ConfigEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Bridge.TPS)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  min_y: 10\n  max_y: 11\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHTTPPortEnvFallback(t *testing.T) {
	t.Setenv("VOXELMEM_HTTP_PORT", "9100")

	s := ServerConfig{}
	assert.Equal(t, 9100, s.GetHTTPPort())

	s.HTTPPort = 8000
	assert.Equal(t, 8000, s.GetHTTPPort())
}
