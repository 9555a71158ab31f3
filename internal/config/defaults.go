package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultEndpoint              = "https://api.skemmarize.app/v1"
	DefaultTimeoutSeconds        = 30
	DefaultRefreshTimeoutSeconds = 30
	DefaultHistoryLimit          = 50
	DefaultPrompt                = "Summarize this image."
)

// Dir returns the ~/.skemmarize directory path.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skemmarize"
	}
	return filepath.Join(home, ".skemmarize")
}

// ConfigPath returns the path to ~/.skemmarize/config.toml.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// SessionPath returns the path to ~/.skemmarize/session.json.
func SessionPath() string {
	return filepath.Join(Dir(), "session.json")
}

// HistoryPath returns the path to ~/.skemmarize/history.json.
func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}
