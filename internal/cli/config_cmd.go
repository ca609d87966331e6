package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/anyrun/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(printConfigCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configResetViewCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect local anyctl configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printConfig(cmd)
	},
}

var printConfigCmd = &cobra.Command{
	Use:    "print-config",
	Short:  "Print the effective configuration",
	Hidden: true,
	Args:   cobra.NoArgs,
	// A broken config file must not stop this command from reporting it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			appConfig = config.DefaultConfig()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return printConfig(cmd)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the files anyctl reads and writes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			cfg = config.DefaultConfig()
		}
		used := ""
		if loader != nil {
			used = loader.ConfigFileUsed()
		}
		paths := struct {
			ConfigFile string `json:"configFile" yaml:"config_file"`
			Context    string `json:"context" yaml:"context"`
			Cache      string `json:"cache" yaml:"cache"`
			LogFile    string `json:"logFile,omitempty" yaml:"log_file,omitempty"`
		}{
			ConfigFile: used,
			Context:    config.NewContextStore("").Path(),
			Cache:      cfg.CachePath(),
			LogFile:    cfg.Logging.File,
		}
		if IsStructuredOutput() {
			return WriteOutput(cmd.OutOrStdout(), paths)
		}
		if paths.ConfigFile == "" {
			paths.ConfigFile = "(none, using defaults)"
		}
		if !cfg.Cache.Enabled {
			paths.Cache += " (disabled)"
		}
		rows := [][]string{
			{"Config:", paths.ConfigFile},
			{"Saved view:", paths.Context},
			{"Cache:", paths.Cache},
		}
		if paths.LogFile != "" {
			rows = append(rows, []string{"Log file:", paths.LogFile})
		}
		return writeTable(cmd.OutOrStdout(), nil, rows)
	},
}

var configResetViewCmd = &cobra.Command{
	Use:   "reset-view",
	Short: "Forget the list view saved with ls --save-view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.NewContextStore("")
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
		return nil
	},
}

func printConfig(cmd *cobra.Command) error {
	cfg := GetConfig()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(cmd.OutOrStdout(), cfg)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if IsVerbose() && loader != nil && loader.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "# from %s\n", loader.ConfigFileUsed())
	}
	return nil
}
