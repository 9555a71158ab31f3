package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the skemmarize CLI configuration loaded from
// ~/.skemmarize/config.toml.
type Config struct {
	Endpoint              string `toml:"endpoint"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	RefreshTimeoutSeconds int    `toml:"refresh_timeout_seconds"`
	HistoryLimit          int    `toml:"history_limit"`
	DefaultPrompt         string `toml:"default_prompt"`
}

// Load reads the config from ~/.skemmarize/config.toml. Returns defaults if
// the file does not exist.
func Load() (*Config, error) {
	cfg := &Config{
		Endpoint:              DefaultEndpoint,
		TimeoutSeconds:        DefaultTimeoutSeconds,
		RefreshTimeoutSeconds: DefaultRefreshTimeoutSeconds,
		HistoryLimit:          DefaultHistoryLimit,
		DefaultPrompt:         DefaultPrompt,
	}

	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to ~/.skemmarize/config.toml.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return err
	}

	f, err := os.Create(ConfigPath())
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
