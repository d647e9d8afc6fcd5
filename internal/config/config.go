package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// Config represents the global ~/.daychat/config.toml.
type Config struct {
	DefaultSession string        `toml:"default_session"`
	Feed           FeedConfig    `toml:"feed"`
	Chat           ChatConfig    `toml:"chat"`
	Metrics        MetricsConfig `toml:"metrics"`
	Log            LogConfig     `toml:"log"`
}

// FeedConfig controls the feed daemon and its clients.
type FeedConfig struct {
	PageSize       int      `toml:"page_size"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// ChatConfig controls how history is bucketed and displayed.
type ChatConfig struct {
	// TimeZone is an IANA zone name; empty means the local zone.
	TimeZone              string `toml:"time_zone"`
	KeepGroupsOnEmptyPage bool   `toml:"keep_groups_on_empty_page"`
	// TodayGroupForSends starts a Today group for outgoing messages instead
	// of appending them to an older day's group.
	TodayGroupForSends bool `toml:"today_group_for_sends"`
}

// MetricsConfig controls the daemon's HTTP endpoint. An empty ListenAddr
// disables it.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
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
		DefaultSession: "main",
		Feed: FeedConfig{
			PageSize:       20,
			RequestTimeout: Duration{10 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config from path on top of Default. It fails if the file is
// missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
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

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if c.Feed.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("feed.request_timeout must be positive, got %s", c.Feed.RequestTimeout)
	}
	if _, err := c.Chat.Location(); err != nil {
		return err
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (c ChatConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("chat.time_zone: %w", err)
	}
	return loc, nil
}

// ZapLevel parses Level; empty means info.
func (c LogConfig) ZapLevel() (zapcore.Level, error) {
	if c.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
