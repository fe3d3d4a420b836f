package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

// Config holds runtime configuration for the run command. Precedence:
// flags/env over config file over built-in defaults.
type Config struct {
	BridgeURL     string
	Discover      bool
	StatsInterval time.Duration
	FallbackPorts []string
	StateDir      string
	Verbose       bool
	Demo          bool
}

func defaultRunConfig() Config {
	return Config{
		BridgeURL:     envStr("UARTMON_BRIDGE_URL", "http://127.0.0.1:5000"),
		StatsInterval: 30 * time.Second,
		FallbackPorts: []string{"/dev/ttyUSB0", "/dev/ttyACM0", "COM3"},
	}
}

// fileConfig is the YAML shape. Durations are written as strings ("30s").
type fileConfig struct {
	BridgeURL     string   `yaml:"bridge_url"`
	Discover      *bool    `yaml:"discover"`
	StatsInterval string   `yaml:"stats_interval"`
	FallbackPorts []string `yaml:"fallback_ports"`
}

// loadConfigFile overlays the YAML file onto cfg. An explicit path that does
// not exist is an error; the default empty path is a no-op.
func loadConfigFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.BridgeURL != "" {
		cfg.BridgeURL = fc.BridgeURL
	}
	if fc.Discover != nil {
		cfg.Discover = *fc.Discover
	}
	if fc.StatsInterval != "" {
		d, err := time.ParseDuration(fc.StatsInterval)
		if err != nil {
			return fmt.Errorf("parse config %s: stats_interval: %w", path, err)
		}
		cfg.StatsInterval = d
	}
	if len(fc.FallbackPorts) > 0 {
		cfg.FallbackPorts = fc.FallbackPorts
	}
	return nil
}

func validateConfig(cfg Config) error {
	u, err := url.Parse(cfg.BridgeURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid bridge url: %q (must be http:// or https://)", cfg.BridgeURL)
	}
	if cfg.StatsInterval < time.Second {
		return fmt.Errorf("stats interval too small: %s (minimum 1s)", cfg.StatsInterval)
	}
	return nil
}

// streamURL derives the push-stream endpoint from the bridge base URL.
func streamURL(bridgeURL string) string {
	ws := strings.Replace(bridgeURL, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimSuffix(ws, "/") + "/ws"
}

// --- env helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
