// Package cli provides TUI launch commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/anyrun/internal/apptui"
	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/logging"
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch the live console",
	Long: `Launch the interactive console: a live, searchable application list
with start, stop, restart, add, edit and delete. Prompts for login when
there is no cached session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "the console requires an interactive terminal",
			Hint:     "Run without --non-interactive and with a TTY, or use CLI subcommands",
			NextStep: "anyctl --help",
			Code:     ExitUsage,
		}
	}

	// Logs would corrupt the screen unless they go to a file.
	if cfg := GetConfig(); cfg == nil || cfg.Logging.File == "" {
		logging.Discard()
	}

	c, err := openConsole(cmd, console.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	return apptui.Run(cmd.Context(), c, apptui.Options{
		Version:  version,
		Username: c.Config.Session.Username,
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
