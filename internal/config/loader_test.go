package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8440, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Heartbeat.MonitorInterval)
	assert.Equal(t, 3*time.Minute, config.Heartbeat.Timeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
cluster:
  name: hbase1
  descriptor: /etc/slider/appConfig.yaml
  options:
    site.global.app_user: yarn
heartbeat:
  monitorInterval: 10s
  timeout: 1m
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "hbase1", config.Cluster.Name)
	assert.Equal(t, "yarn", config.Cluster.Options["site.global.app_user"])
	assert.Equal(t, 10*time.Second, config.Heartbeat.MonitorInterval)
	assert.Equal(t, time.Minute, config.Heartbeat.Timeout)
	// Unset fields keep their defaults.
	assert.Equal(t, 256, config.Heartbeat.QueueCapacity)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: -1\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestWatcherAppliesReload(t *testing.T) {
	path := writeConfig(t, "heartbeat:\n  timeout: 2m\n")

	applied := make(chan HeartbeatConfig, 4)
	watcher, err := NewWatcher(path, func(hb HeartbeatConfig) { applied <- hb })
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("heartbeat:\n  timeout: 5m\n"), 0o644))

	select {
	case hb := <-applied:
		assert.Equal(t, 5*time.Minute, hb.Timeout)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload was not applied")
	}
}
