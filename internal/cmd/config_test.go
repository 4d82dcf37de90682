package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TICK_INTERVAL_SEC", "")
	t.Setenv("RELAY_ENABLED", "")

	config := defaultConfig()
	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, 10*time.Second, config.tickInterval())
	assert.False(t, config.Relay.Enabled)
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TICK_INTERVAL_SEC", "5")
	t.Setenv("RELAY_ENABLED", "true")

	config := defaultConfig()
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 5*time.Second, config.tickInterval())
	assert.True(t, config.Relay.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TICK_INTERVAL_SEC", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7070"
gateway:
  tick_interval_sec: 30
relay:
  enabled: true
  url: nats://broker:4222
`), 0o644))

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", config.Server.Port)
	assert.Equal(t, 30*time.Second, config.tickInterval())
	assert.True(t, config.Relay.Enabled)
	assert.Equal(t, "nats://broker:4222", config.Relay.URL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
