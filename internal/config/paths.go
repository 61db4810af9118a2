package config

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.snipchat.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".snipchat")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// CachePath returns the local cache database path.
func CachePath() string {
	return filepath.Join(BaseDir(), "cache.db")
}

// LogPath returns the log file path.
func LogPath() string {
	return filepath.Join(BaseDir(), "logs", "snipchat.log")
}
