// Package config loads and saves the client configuration at
// ~/.snipchat/config.toml.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that round-trips through TOML as a string
// like "3s" or "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the client configuration.
type Config struct {
	BaseURL                  string   `toml:"base_url"`
	AuthToken                string   `toml:"auth_token"`
	CachePath                string   `toml:"cache_path"`
	LogPath                  string   `toml:"log_path"`
	ConversationPollInterval Duration `toml:"conversation_poll_interval"`
	MessagePollInterval      Duration `toml:"message_poll_interval"`
	ProbeInterval            Duration `toml:"probe_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:                  "https://snipshift.com.au",
		CachePath:                CachePath(),
		LogPath:                  LogPath(),
		ConversationPollInterval: Duration(3 * time.Second),
		MessagePollInterval:      Duration(2 * time.Second),
		ProbeInterval:            Duration(10 * time.Second),
	}
}

// Load reads config from path and fills unset fields with defaults. A
// missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes config to path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.CachePath == "" {
		cfg.CachePath = def.CachePath
	}
	if cfg.LogPath == "" {
		cfg.LogPath = def.LogPath
	}
	if cfg.ConversationPollInterval <= 0 {
		cfg.ConversationPollInterval = def.ConversationPollInterval
	}
	if cfg.MessagePollInterval <= 0 {
		cfg.MessagePollInterval = def.MessagePollInterval
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
}
