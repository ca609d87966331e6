package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/anyrun/internal/editor"
	"github.com/tOgg1/anyrun/internal/legacy"
	"github.com/tOgg1/anyrun/internal/models"
)

var (
	importReplace bool
	importDryRun  bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importReplace, "replace", false, "overwrite applications that already exist")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would change without saving")
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import applications from an anyrun.toml or JSON config",
	Long: `Import applications from a legacy anyrun.toml (or a JSON config
document) into the supervisor in a single save.

Without a file, ./anyrun.toml and /etc/anyrun/anyrun.toml are tried.
Applications that already exist are skipped unless --replace is given.`,
	Example: `  anyctl import
  anyctl import ./old/anyrun.toml --dry-run
  anyctl import config.json --replace`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := legacy.Locate(args...)
		if err != nil {
			if errors.Is(err, legacy.ErrNoConfigFile) {
				return &PreflightError{
					Message: err.Error(),
					Hint:    "Pass the file path, e.g. anyctl import ./anyrun.toml",
					Code:    ExitUsage,
				}
			}
			return err
		}
		doc, err := legacy.Load(path)
		if err != nil {
			return err
		}

		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		result, err := c.Editor.Import(cmd.Context(), doc.Apps, editor.ImportOptions{
			Replace: importReplace,
			DryRun:  importDryRun,
		})
		if err != nil {
			return err
		}
		return writeImportResult(cmd, path, doc, result)
	},
}

func writeImportResult(cmd *cobra.Command, path string, doc *models.ConfigDocument, result editor.ImportResult) error {
	out := cmd.OutOrStdout()
	if IsStructuredOutput() {
		return WriteOutput(out, struct {
			Source   string   `json:"source" yaml:"source"`
			DryRun   bool     `json:"dryRun" yaml:"dry_run"`
			Added    []string `json:"added" yaml:"added"`
			Replaced []string `json:"replaced" yaml:"replaced"`
			Skipped  []string `json:"skipped" yaml:"skipped"`
		}{path, importDryRun, nonNil(result.Added), nonNil(result.Replaced), nonNil(result.Skipped)})
	}

	verb := "Imported"
	if importDryRun {
		verb = "Would import"
	}
	fmt.Fprintf(out, "%s %d of %d applications from %s\n", verb, len(result.Added)+len(result.Replaced), len(doc.Apps), path)
	printNames(out, "added", result.Added)
	printNames(out, "replaced", result.Replaced)
	printNames(out, "skipped (already exist)", result.Skipped)

	if !importDryRun && result.Changed() {
		PrintNextSteps(out, HintContext{Action: "import", Apps: result.Added})
	}
	return nil
}

func printNames(out io.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", label, strings.Join(names, ", "))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
