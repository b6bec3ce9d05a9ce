package main

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk TOML configuration for the daemon subcommand.
type Config struct {
	ListenAddr      string `toml:"listen_addr"`
	RuntimeDir      string `toml:"runtime_dir"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	GraceSeconds    int    `toml:"grace_seconds"`
	MaxAttempts     uint64 `toml:"max_attempts"`
	TimezoneSyncSec int    `toml:"timezone_sync_seconds"`
	MetricsAddr     string `toml:"metrics_addr"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:7420",
		RuntimeDir:      "/run/taskd",
		LogLevel:        "info",
		LogFormat:       "text",
		GraceSeconds:    10,
		MaxAttempts:     0,
		TimezoneSyncSec: 3600,
		MetricsAddr:     "127.0.0.1:7421",
	}
}

// loadConfig reads a TOML config file, overlaying it onto defaultConfig.
// A missing path is not an error: the daemon runs on defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) grace() time.Duration { return time.Duration(c.GraceSeconds) * time.Second }

func (c Config) timezoneSyncInterval() time.Duration {
	return time.Duration(c.TimezoneSyncSec) * time.Second
}
