package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tOgg1/anyrun/internal/editor"
	"github.com/tOgg1/anyrun/internal/models"
)

// appFlags holds the flags shared by add and edit.
type appFlags struct {
	execute   string
	dir       string
	appType   string
	args      string
	arg       []string
	daemon    bool
	autostart bool
	timeout   string
	port      int
}

func (f *appFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.execute, "execute", "e", "", "executable or launcher (java, python, /usr/bin/app)")
	fs.StringVarP(&f.dir, "dir", "d", "", "working directory")
	fs.StringVar(&f.appType, "type", "", "app type: java, python, npm, node, go, other")
	fs.StringVar(&f.args, "args", "", "arguments as one whitespace-separated string")
	fs.StringArrayVar(&f.arg, "arg", nil, "one argument (repeatable, keeps spaces)")
	fs.BoolVar(&f.daemon, "daemon", false, "process detaches from the supervisor")
	fs.BoolVar(&f.autostart, "autostart", false, "start when the supervisor boots")
	fs.StringVar(&f.timeout, "timeout", "", "graceful shutdown timeout in seconds (default 30)")
	fs.IntVar(&f.port, "port", 0, "declared listening port")
}

// apply copies every flag set on the command line onto cfg.
func (f *appFlags) apply(fs *pflag.FlagSet, cfg *models.AppConfig) error {
	if fs.Changed("execute") {
		cfg.Execute = f.execute
	}
	if fs.Changed("dir") {
		cfg.WorkingDirectory = f.dir
	}
	if fs.Changed("type") {
		cfg.AppType = models.NormalizeAppType(f.appType)
	}
	switch {
	case fs.Changed("arg") && fs.Changed("args"):
		return &PreflightError{Message: "use either --args or --arg, not both", Code: ExitUsage}
	case fs.Changed("arg"):
		cfg.Arguments = append([]string{}, f.arg...)
	case fs.Changed("args"):
		cfg.Arguments = models.SplitArguments(f.args)
	}
	if fs.Changed("daemon") {
		cfg.Daemon = f.daemon
	}
	if fs.Changed("autostart") {
		cfg.Autostart = f.autostart
	}
	if fs.Changed("timeout") {
		n, err := models.ParseTimeout(f.timeout)
		if err != nil {
			return err
		}
		cfg.TimeoutSeconds = n
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	return nil
}

var (
	addFlags    appFlags
	addStart    bool
	editFlags   appFlags
	editRestart bool
	rmStop      bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)

	addFlags.register(addCmd.Flags())
	addCmd.Flags().BoolVar(&addStart, "start", false, "start the application after adding it")

	editFlags.register(editCmd.Flags())
	editCmd.Flags().BoolVar(&editRestart, "restart", false, "restart the application after saving")

	rmCmd.Flags().BoolVar(&rmStop, "stop", false, "stop the application before removing it")
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an application to the supervisor configuration",
	Example: `  anyctl add web -e java --type java --args "-jar web.jar" --autostart
  anyctl add worker -e python --arg worker.py --arg "--queue default" --start`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := models.AppConfig{Name: args[0]}
		if err := addFlags.apply(cmd.Flags(), &cfg); err != nil {
			return err
		}

		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Editor.Add(cmd.Context(), cfg, editor.AddOptions{StartAfter: addStart}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", cfg.Name)
		if !addStart {
			PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "add", App: cfg.Name})
		}
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change an application's configuration",
	Long: `Change an application's configuration. Only the flags given are
changed. Applications cannot be renamed; remove and add instead.`,
	Example: `  anyctl edit web --args "-jar web-2.jar" --restart
  anyctl edit worker --timeout 60 --autostart=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		current, err := c.Find(name)
		if err != nil {
			return err
		}
		cfg := current.Config.Clone()
		if err := editFlags.apply(cmd.Flags(), &cfg); err != nil {
			return err
		}

		if err := c.Editor.Edit(cmd.Context(), name, cfg, editor.EditOptions{RestartAfter: editRestart}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", name)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <name...>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove applications from the supervisor configuration",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if len(args) == 1 {
			if err := c.Editor.Remove(cmd.Context(), args[0], editor.RemoveOptions{StopFirst: rmStop}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		}

		result := c.Dispatcher.DeleteSelected(cmd.Context(), args, rmStop)
		for _, name := range result.Succeeded {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
		}
		return result.Err()
	},
}
