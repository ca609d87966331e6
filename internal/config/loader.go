package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars < CLI flags
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Set up Viper
	l.setupViper(cfg)

	// Load config file
	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply env var overrides (Viper's Unmarshal doesn't properly merge env vars for nested structs)
	l.applyEnvOverrides(cfg)

	// Expand ~ in paths
	expandPaths(cfg)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Cache.Path = expandTilde(cfg.Cache.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "anyrun"))
	}

	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "anyrun"))
	}

	v.AddConfigPath(".")

	v.SetEnvPrefix("ANYRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Viper's Unmarshal ignores env vars for nested keys unless they are bound.
	bindEnvVars(v)

	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Global
	v.SetDefault("global.data_dir", cfg.Global.DataDir)
	v.SetDefault("global.config_dir", cfg.Global.ConfigDir)

	// Supervisor
	v.SetDefault("supervisor.url", cfg.Supervisor.URL)
	v.SetDefault("supervisor.timeout", cfg.Supervisor.Timeout)
	v.SetDefault("supervisor.rate_limit", cfg.Supervisor.RateLimit)
	v.SetDefault("supervisor.rate_burst", cfg.Supervisor.RateBurst)
	v.SetDefault("supervisor.user_agent", cfg.Supervisor.UserAgent)

	// Poller
	v.SetDefault("poller.interval", cfg.Poller.Interval)
	v.SetDefault("poller.confirm_delay", cfg.Poller.ConfirmDelay)
	v.SetDefault("poller.pending_timeout", cfg.Poller.PendingTimeout)

	// View
	v.SetDefault("view.page_size", cfg.View.PageSize)
	v.SetDefault("view.default_sort", cfg.View.DefaultSort)

	// Session
	v.SetDefault("session.ttl", cfg.Session.TTL)
	v.SetDefault("session.username", cfg.Session.Username)

	// Cache
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.busy_timeout_ms", cfg.Cache.BusyTimeoutMs)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// TUI
	v.SetDefault("tui.refresh_interval", cfg.TUI.RefreshInterval)
	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.language", cfg.TUI.Language)

	// Metrics
	v.SetDefault("metrics.listen_addr", cfg.Metrics.ListenAddr)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Set sets a Viper value by key.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// envBindings lists every key that can be overridden with ANYRUN_* variables.
var envBindings = []string{
	"global.data_dir",
	"global.config_dir",
	"supervisor.url",
	"supervisor.timeout",
	"supervisor.rate_limit",
	"supervisor.rate_burst",
	"supervisor.user_agent",
	"poller.interval",
	"poller.confirm_delay",
	"poller.pending_timeout",
	"view.page_size",
	"view.default_sort",
	"session.ttl",
	"session.username",
	"cache.enabled",
	"cache.path",
	"cache.busy_timeout_ms",
	"logging.level",
	"logging.format",
	"logging.file",
	"logging.enable_caller",
	"tui.refresh_interval",
	"tui.theme",
	"tui.language",
	"metrics.listen_addr",
}

// bindEnvVars binds environment variables for config keys:
// supervisor.url -> ANYRUN_SUPERVISOR_URL.
func bindEnvVars(v *viper.Viper) {
	for _, key := range envBindings {
		envVar := "ANYRUN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envVar)
	}
}

// applyEnvOverrides copies values Unmarshal can miss when a config file
// is present and the override only exists in the environment.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	v := l.v

	if u := v.GetString("supervisor.url"); u != "" {
		cfg.Supervisor.URL = u
	}
	if path := v.GetString("cache.path"); path != "" {
		cfg.Cache.Path = path
	}
	if dataDir := v.GetString("global.data_dir"); dataDir != "" {
		cfg.Global.DataDir = dataDir
	}
	if level := v.GetString("logging.level"); level != "" && level != "info" {
		cfg.Logging.Level = level
	}
	if format := v.GetString("logging.format"); format != "" && format != "console" {
		cfg.Logging.Format = format
	}
	if file := v.GetString("logging.file"); file != "" {
		cfg.Logging.File = file
	}
	if user := v.GetString("session.username"); user != "" {
		cfg.Session.Username = user
	}
}

// BindFlag wires a CLI flag to a config key so flags win over env and file.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("nil flag for %s", key)
	}
	return l.v.BindPFlag(key, flag)
}
