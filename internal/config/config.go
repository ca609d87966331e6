// Package config handles anyrun configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for anyrun.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Supervisor is the remote process supervisor this client drives.
	Supervisor SupervisorConfig `yaml:"supervisor" mapstructure:"supervisor"`

	// Poller controls the status refresh loop.
	Poller PollerConfig `yaml:"poller" mapstructure:"poller"`

	// View controls list projection defaults.
	View ViewConfig `yaml:"view" mapstructure:"view"`

	// Session controls login persistence.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Cache is the local sqlite cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Metrics exposes prometheus counters when ListenAddr is set.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// GlobalConfig contains global anyrun settings.
type GlobalConfig struct {
	// DataDir is where anyrun stores its data (default: ~/.local/share/anyrun).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/anyrun).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// SupervisorConfig describes how to reach the supervisor API.
type SupervisorConfig struct {
	// URL is the API base, including the /api prefix.
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds every HTTP request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateBurst is the limiter burst size.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// PollerConfig controls the status refresh loop.
type PollerConfig struct {
	// Interval between scheduled polls.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// ConfirmDelay is the wait before the poll that follows an action.
	ConfirmDelay time.Duration `yaml:"confirm_delay" mapstructure:"confirm_delay"`

	// PendingTimeout drops unconfirmed pending actions.
	PendingTimeout time.Duration `yaml:"pending_timeout" mapstructure:"pending_timeout"`
}

// ViewConfig controls list projection defaults.
type ViewConfig struct {
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
	DefaultSort string `yaml:"default_sort" mapstructure:"default_sort"`
}

// SessionConfig controls login persistence.
type SessionConfig struct {
	// TTL is how long a login remains valid.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Username pre-fills the login prompt.
	Username string `yaml:"username" mapstructure:"username"`
}

// CacheConfig controls the local sqlite cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains terminal UI settings.
type TUIConfig struct {
	// RefreshInterval is how often the screen re-reads the snapshot.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Theme is the initial palette (default, high-contrast, ocean, sunset).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// Language is the initial UI language (en, zh).
	Language string `yaml:"language" mapstructure:"language"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "anyrun"),
			ConfigDir: filepath.Join(homeDir, ".config", "anyrun"),
		},
		Supervisor: SupervisorConfig{
			URL:       "http://localhost:5173/api",
			Timeout:   15 * time.Second,
			RateLimit: 20,
			RateBurst: 10,
			UserAgent: "anyctl",
		},
		Poller: PollerConfig{
			Interval:       2 * time.Second,
			ConfirmDelay:   500 * time.Millisecond,
			PendingTimeout: 10 * time.Second,
		},
		View: ViewConfig{
			PageSize:    10,
			DefaultSort: "name",
		},
		Session: SessionConfig{
			TTL:      24 * time.Hour,
			Username: "admin",
		},
		Cache: CacheConfig{
			Enabled:       true,
			Path:          "", // Will be set to DataDir/cache.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			RefreshInterval: 500 * time.Millisecond,
			Theme:           "default",
			Language:        "en",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Supervisor.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("supervisor.url must be an absolute http(s) URL, got %q", c.Supervisor.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("supervisor.url scheme must be http or https")
	}

	if c.Supervisor.Timeout <= 0 {
		return fmt.Errorf("supervisor.timeout must be positive")
	}
	if c.Supervisor.RateLimit < 0 {
		return fmt.Errorf("supervisor.rate_limit must not be negative")
	}

	if c.Poller.Interval < 100*time.Millisecond {
		return fmt.Errorf("poller.interval must be at least 100ms")
	}
	if c.Poller.ConfirmDelay < 0 {
		return fmt.Errorf("poller.confirm_delay must not be negative")
	}
	if c.Poller.PendingTimeout <= 0 {
		return fmt.Errorf("poller.pending_timeout must be positive")
	}

	if c.View.PageSize < 1 {
		return fmt.Errorf("view.page_size must be at least 1")
	}
	switch c.View.DefaultSort {
	case "name", "status", "pid", "port":
	default:
		return fmt.Errorf("view.default_sort must be one of name, status, pid, port")
	}

	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least 1m")
	}

	switch c.TUI.Language {
	case "en", "zh":
	default:
		return fmt.Errorf("tui.language must be en or zh")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// CachePath returns the full cache database path.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Global.DataDir, "cache.db")
}
