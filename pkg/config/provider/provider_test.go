package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = `
log-level: DEBUG
poll-timeout: 250ms
rate: 2.5
healthcheck:
  port: 9290
redis:
  host: localhost
  port: 6379
  db: 0
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	assert.NoError(t, err, "LoadConfig should not return an error")
	assert.NotNil(t, cfg, "config should be loaded and not nil")
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestString(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.String("log-level", "INFO"), "log-level should come from the config")
	assert.Equal(t, "INFO", cfg.String("no-such-key", "INFO"), "missing key should return the default")
}

func TestDuration(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Duration("poll-timeout", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("no-such-key", time.Second))
}

func TestFloat64(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Float64("rate", 1))
	assert.Equal(t, 1.0, cfg.Float64("no-such-key", 1))
}

func TestUint16(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, uint16(9290), cfg.Uint16("healthcheck.port", 0))
	assert.Equal(t, uint16(7), cfg.Uint16("no-such-key", 7))
}

func TestUnmarshal(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	var conn struct {
		Host string
		Port int
		DB   int
	}
	require.NoError(t, cfg.Unmarshal("redis", &conn))
	assert.Equal(t, "localhost", conn.Host)
	assert.Equal(t, 6379, conn.Port)
}

func TestContains(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)

	assert.True(t, cfg.Contains("rate"))
	assert.False(t, cfg.Contains("no-such-key"))
}
