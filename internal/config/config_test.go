package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	p := writeFile(t, `
base_url: http://todo.internal:9000/api
page_size: 25
timeout: 3s
theme: neon
last_arrival_wins: true
`)
	t.Setenv("TODO_PAGE_SIZE", "50")
	t.Setenv("TODO_LOG_LEVEL", "debug")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://todo.internal:9000/api", cfg.BaseURL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "neon", cfg.Theme)
	assert.True(t, cfg.LastArrivalWins)
	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	require.NoError(t, cfg.Validate())
}

func TestMissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBadInput(t *testing.T) {
	_, err := Load(writeFile(t, "page_size: [1"))
	assert.Error(t, err)

	t.Setenv("TODO_PAGE_SIZE", "ten")
	_, err = Load(writeFile(t, ""))
	assert.ErrorContains(t, err, "TODO_PAGE_SIZE")
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"relative url": func(c *Config) { c.BaseURL = "/api" },
		"ftp url":      func(c *Config) { c.BaseURL = "ftp://x/api" },
		"page size":    func(c *Config) { c.PageSize = 0 },
		"huge page":    func(c *Config) { c.PageSize = 1000 },
		"timeout":      func(c *Config) { c.Timeout = -time.Second },
		"log level":    func(c *Config) { c.LogLevel = "chatty" },
		"theme":        func(c *Config) { c.Theme = "pink" },
		"color":        func(c *Config) { c.Color = "sometimes" },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestColorFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "")
	cfg, err := Load("")
	require.NoError(t, err)
	force, disable, err := cfg.ColorForcing()
	require.NoError(t, err)
	assert.False(t, force)
	assert.False(t, disable)

	t.Setenv("NO_COLOR", "1")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "never", cfg.Color)
	_, disable, err = cfg.ColorForcing()
	require.NoError(t, err)
	assert.True(t, disable)

	t.Setenv("TODO_COLOR", "always")
	cfg, err = Load("")
	require.NoError(t, err)
	force, disable, err = cfg.ColorForcing()
	require.NoError(t, err)
	assert.True(t, force)
	assert.False(t, disable)
}
