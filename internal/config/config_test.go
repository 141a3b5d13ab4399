package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp", cfg.Server.Transport)
	assert.Equal(t, 20, cfg.Server.TickRate)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickInterval())
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("BLOCKVERSE_GAME_PORT", "30000")
	t.Setenv("BLOCKVERSE_TRANSPORT", "kcp")
	t.Setenv("BLOCKVERSE_SEED", "-42")

	cfg := Default()
	assert.Equal(t, 30000, cfg.Server.GamePort)
	assert.Equal(t, "kcp", cfg.Server.Transport)
	assert.Equal(t, int64(-42), cfg.World.Seed)
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	t.Setenv("BLOCKVERSE_GAME_PORT", "30000")

	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  game_port: 25570
  tick_rate: 10
world:
  seed: 99
  sea_level: 40
cache:
  redis_url: redis://localhost:6379/0
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25570, cfg.Server.GamePort)
	assert.Equal(t, 10, cfg.Server.TickRate)
	assert.Equal(t, int64(99), cfg.World.Seed)
	assert.Equal(t, 40, cfg.World.SeaLevel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 8088, cfg.Server.RESTPort)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("BLOCKVERSE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "quic"
	cfg.Server.GamePort = 70000
	cfg.World.SeaLevel = 500

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quic")
	assert.Contains(t, err.Error(), "70000")
	assert.Contains(t, err.Error(), "sea_level")
}

func TestAuthBackendValidation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "memory", cfg.Auth.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())

	cfg.Auth.Backend = "mariadb"
	cfg.Auth.MariaDSN = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maria_dsn")

	cfg.Auth.Backend = "sqlite"
	require.Error(t, cfg.Validate())
}
