// Package cli implements the anyctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/anyrun/internal/config"
	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/logging"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatJSONL = "jsonl"
	formatYAML  = "yaml"
)

var (
	cfgFile        string
	serverURL      string
	outputFormat   string
	verbose        bool
	logLevel       string
	nonInteractive bool
	noCache        bool

	appConfig *config.Config
	loader    *config.Loader
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "anyctl",
	Short: "Control applications managed by an anyrun supervisor",
	Long: `anyctl lists, starts, stops, restarts, adds, edits and removes the
applications managed by a remote anyrun supervisor, and keeps a live view
of their status.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/anyrun/config.yaml)")
	flags.StringVarP(&serverURL, "server", "s", "", "supervisor API URL (e.g. http://localhost:5173/api)")
	flags.StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json, jsonl, yaml")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail instead")
	flags.BoolVar(&noCache, "no-cache", false, "do not read or write the local cache")
}

// Execute runs the root command and returns the process exit code.
func Execute(v string) int {
	if v != "" {
		version = v
	}
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	return reportError(os.Stderr, err)
}

func initConfig(cmd *cobra.Command) error {
	loader = config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	if f := cmd.Flags().Lookup("server"); f != nil && f.Changed {
		if err := loader.BindFlag("supervisor.url", f); err != nil {
			return err
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return &PreflightError{
			Message:  err.Error(),
			Hint:     "Fix the config file or the ANYRUN_* environment variables",
			NextStep: "anyctl print-config",
			Code:     ExitUsage,
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	} else if verbose {
		cfg.Logging.Level = "debug"
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	switch outputFormat {
	case formatTable, formatJSON, formatJSONL, formatYAML:
	default:
		return &PreflightError{
			Message: fmt.Sprintf("unknown output format %q", outputFormat),
			Hint:    "Use one of table, json, jsonl, yaml",
			Code:    ExitUsage,
		}
	}

	appConfig = cfg
	initLogging(cfg, os.Stderr)
	if used := loader.ConfigFileUsed(); used != "" {
		logger := logging.Component("cli")
		logger.Debug().Str("config_file", used).Msg("loaded config file")
	}
	return nil
}

// initLogging routes logs to the configured file when one is set.
func initLogging(cfg *config.Config, fallback io.Writer) {
	out := fallback
	if cfg.Logging.File != "" {
		if f, err := logging.OpenFile(cfg.Logging.File); err == nil {
			out = f
		}
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       out,
		EnableCaller: cfg.Logging.EnableCaller,
	})
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --output json was given.
func IsJSONOutput() bool {
	return outputFormat == formatJSON
}

// IsJSONLOutput reports whether --output jsonl was given.
func IsJSONLOutput() bool {
	return outputFormat == formatJSONL
}

// IsYAMLOutput reports whether --output yaml was given.
func IsYAMLOutput() bool {
	return outputFormat == formatYAML
}

// IsStructuredOutput reports whether output is meant for machines.
func IsStructuredOutput() bool {
	return IsJSONOutput() || IsJSONLOutput() || IsYAMLOutput()
}

// IsVerbose reports whether --verbose was given.
func IsVerbose() bool {
	return verbose
}

// IsNonInteractive reports whether prompting is disabled, either by flag
// or because there is no terminal.
func IsNonInteractive() bool {
	return nonInteractive || !hasTTY()
}

// openConsole builds a Console from the loaded config.
func openConsole(cmd *cobra.Command, opts console.Options) (*console.Console, error) {
	cfg := GetConfig()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return console.Open(cmd.Context(), cfg, opts)
}

// openSession opens a Console and requires a logged-in session.
func openSession(cmd *cobra.Command, opts console.Options) (*console.Console, error) {
	c, err := openConsole(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Guard.Require(); err != nil {
		c.Close()
		return nil, &PreflightError{
			Message:  err.Error(),
			Hint:     "Log in to " + c.Config.Supervisor.URL + " first",
			NextStep: "anyctl login",
			Code:     ExitAuth,
		}
	}
	return c, nil
}

// loadApps opens a session and fetches a fresh snapshot.
func loadApps(cmd *cobra.Command) (*console.Console, error) {
	c, err := openSession(cmd, console.Options{})
	if err != nil {
		return nil, err
	}
	if err := c.Refresh(cmd.Context()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
