// Package config resolves client settings: defaults, then an optional YAML
// file, then TODO_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const fileName = "config.yaml"

type Config struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	Theme    string        `yaml:"theme"`
	// Color is auto, always or never.
	Color string `yaml:"color"`
	// LastArrivalWins lets an older list response overwrite a newer one
	// when fetches overlap.
	LastArrivalWins bool `yaml:"last_arrival_wins"`
}

func Default() Config {
	return Config{
		BaseURL:  "http://localhost:8080/api",
		PageSize: 10,
		LogLevel: "warn",
		Theme:    "classic",
		Color:    "auto",
	}
}

// DefaultPath is ~/.todosync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".todosync", fileName), nil
}

// Load reads path over the defaults and applies the environment. An empty
// path means DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TODO_API_URL"); ok {
		c.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("TODO_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TODO_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	if v, ok := lookup("TODO_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TODO_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := lookup("TODO_LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup("TODO_THEME"); ok {
		c.Theme = strings.TrimSpace(v)
	}
	if v, ok := lookup("NO_COLOR"); ok && v != "" {
		c.Color = "never"
	}
	if v, ok := lookup("TODO_COLOR"); ok {
		c.Color = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks the resolved settings.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url: want an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size: must be 1..100, got %d", c.PageSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout: must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Theme) {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("theme: unknown %q (classic|neon|mono)", c.Theme)
	}
	if _, _, err := c.ColorForcing(); err != nil {
		return err
	}
	return nil
}

// ColorForcing maps Color onto ui.SetColorForcing. auto leaves both false.
func (c Config) ColorForcing() (force, disable bool, err error) {
	switch strings.ToLower(c.Color) {
	case "", "auto":
		return false, false, nil
	case "always":
		return true, false, nil
	case "never":
		return false, true, nil
	}
	return false, false, fmt.Errorf("color: unknown %q (auto|always|never)", c.Color)
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
