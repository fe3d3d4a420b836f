package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	base := defaultRunConfig()
	assert.NoError(t, validateConfig(base))

	bad := base
	bad.BridgeURL = "not a url"
	assert.Error(t, validateConfig(bad))

	bad = base
	bad.BridgeURL = "ftp://host:21"
	assert.Error(t, validateConfig(bad))

	bad = base
	bad.StatsInterval = 100 * time.Millisecond
	assert.Error(t, validateConfig(bad))
}

func TestStreamURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:5000/ws", streamURL("http://127.0.0.1:5000"))
	assert.Equal(t, "ws://127.0.0.1:5000/ws", streamURL("http://127.0.0.1:5000/"))
	assert.Equal(t, "wss://bridge.local:443/ws", streamURL("https://bridge.local:443"))
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uartmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"bridge_url: http://192.168.1.20:5000\n"+
			"stats_interval: 10s\n"+
			"fallback_ports: [COM3, COM4]\n"), 0644))

	cfg := defaultRunConfig()
	require.NoError(t, loadConfigFile(path, &cfg))
	assert.Equal(t, "http://192.168.1.20:5000", cfg.BridgeURL)
	assert.Equal(t, 10*time.Second, cfg.StatsInterval)
	assert.Equal(t, []string{"COM3", "COM4"}, cfg.FallbackPorts)
}

func TestLoadConfigFile_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uartmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge_url: http://10.0.0.2:5000\n"), 0644))

	cfg := defaultRunConfig()
	require.NoError(t, loadConfigFile(path, &cfg))
	assert.Equal(t, "http://10.0.0.2:5000", cfg.BridgeURL)
	assert.Equal(t, 30*time.Second, cfg.StatsInterval)
}

func TestLoadConfigFile_MissingAndMalformed(t *testing.T) {
	cfg := defaultRunConfig()
	assert.NoError(t, loadConfigFile("", &cfg), "empty path is a no-op")
	assert.Error(t, loadConfigFile("/nonexistent/uartmon.yaml", &cfg))

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))
	assert.Error(t, loadConfigFile(path, &cfg))
}
