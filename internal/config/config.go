package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Reply sources.
const (
	ReplySourceDemo      = "demo"
	ReplySourceAssistant = "assistant"
)

// Config represents the client's ~/.murmur/config.toml.
type Config struct {
	DefaultProfile        string   `toml:"default_profile"`
	ServerURL             string   `toml:"server_url"`
	Contacts              int      `toml:"contacts"`
	HistorySize           int      `toml:"history_size"`
	ReplySource           string   `toml:"reply_source"`
	ReplyDelayMin         Duration `toml:"reply_delay_min"`
	ReplyDelayMax         Duration `toml:"reply_delay_max"`
	CancelPendingOnSwitch bool     `toml:"cancel_pending_on_switch"`
}

// Duration is a time.Duration written as "1.5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		ServerURL:      "http://localhost:8080",
		Contacts:       12,
		HistorySize:    8,
		ReplySource:    ReplySourceDemo,
		ReplyDelayMin:  Duration{time.Second},
		ReplyDelayMax:  Duration{3 * time.Second},
	}
}

// Load reads config from the given path. Returns nil and an error if the file
// is missing. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.ReplySource {
	case ReplySourceDemo, ReplySourceAssistant:
	default:
		return fmt.Errorf("reply_source must be %q or %q, got %q", ReplySourceDemo, ReplySourceAssistant, c.ReplySource)
	}
	if c.ReplyDelayMin.Duration < 0 || c.ReplyDelayMax.Duration < c.ReplyDelayMin.Duration {
		return fmt.Errorf("reply delay range [%s, %s] is invalid", c.ReplyDelayMin, c.ReplyDelayMax)
	}
	if c.Contacts < 0 || c.HistorySize < 0 {
		return errors.New("contacts and history_size must not be negative")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
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
