package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range envBindings {
		t.Setenv(envName(key), "")
		os.Unsetenv(envName(key))
	}
}

func envName(key string) string {
	return "ANYRUN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5173/api", cfg.Supervisor.URL)
	require.Equal(t, 2*time.Second, cfg.Poller.Interval)
	require.Equal(t, 500*time.Millisecond, cfg.Poller.ConfirmDelay)
	require.Equal(t, 10, cfg.View.PageSize)
	require.Equal(t, 24*time.Hour, cfg.Session.TTL)
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "cache.db"), cfg.CachePath())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
supervisor:
  url: http://supervisor.internal:9000/api
  timeout: 5s
poller:
  interval: 3s
view:
  page_size: 25
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ANYRUN_SESSION_USERNAME", "ops")

	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, path, loader.ConfigFileUsed())
	require.Equal(t, "http://supervisor.internal:9000/api", cfg.Supervisor.URL)
	require.Equal(t, 5*time.Second, cfg.Supervisor.Timeout)
	require.Equal(t, 3*time.Second, cfg.Poller.Interval)
	require.Equal(t, 25, cfg.View.PageSize)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "ops", cfg.Session.Username)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateEnv(t)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "relative url", mutate: func(c *Config) { c.Supervisor.URL = "/api" }},
		{name: "ftp url", mutate: func(c *Config) { c.Supervisor.URL = "ftp://host/api" }},
		{name: "fast poll", mutate: func(c *Config) { c.Poller.Interval = 10 * time.Millisecond }},
		{name: "zero page size", mutate: func(c *Config) { c.View.PageSize = 0 }},
		{name: "bad sort", mutate: func(c *Config) { c.View.DefaultSort = "memory" }},
		{name: "bad language", mutate: func(c *Config) { c.TUI.Language = "fr" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestExpandTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.Equal(t, home, expandTilde("~"))
	require.Equal(t, filepath.Join(home, "x", "cache.db"), expandTilde("~/x/cache.db"))
	require.Equal(t, "/abs", expandTilde("/abs"))
	require.Equal(t, "", expandTilde(""))
}
