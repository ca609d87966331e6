package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/anyrun/internal/config"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/view"
)

var (
	lsSearch    string
	lsTab       string
	lsSort      string
	lsDesc      bool
	lsPage      int
	lsAll       bool
	lsAutostart bool
	lsSaveView  bool
)

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statusCmd)

	lsCmd.Flags().StringVarP(&lsSearch, "search", "q", "", "filter by name or app type (case-insensitive substring)")
	lsCmd.Flags().StringVarP(&lsTab, "tab", "t", "", "status tab: all, running, stopped")
	lsCmd.Flags().StringVar(&lsSort, "sort", "", "sort key: name, status, pid, port")
	lsCmd.Flags().BoolVar(&lsDesc, "desc", false, "sort descending")
	lsCmd.Flags().IntVarP(&lsPage, "page", "p", 1, "page number")
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "show every page")
	lsCmd.Flags().BoolVar(&lsAutostart, "autostart", false, "only applications flagged autostart")
	lsCmd.Flags().BoolVar(&lsSaveView, "save-view", false, "remember tab, sort and search for next time")
}

// appRow is the structured form of one listed application.
type appRow struct {
	Name             string     `json:"name" yaml:"name"`
	Status           string     `json:"status" yaml:"status"`
	PID              *int       `json:"pid,omitempty" yaml:"pid,omitempty"`
	Port             *int       `json:"port,omitempty" yaml:"port,omitempty"`
	AppType          string     `json:"appType" yaml:"app_type"`
	Execute          string     `json:"execute" yaml:"execute"`
	WorkingDirectory string     `json:"workingDirectory,omitempty" yaml:"working_directory,omitempty"`
	Arguments        []string   `json:"arguments" yaml:"arguments"`
	Daemon           bool       `json:"daemon" yaml:"daemon"`
	Autostart        bool       `json:"autostart" yaml:"autostart"`
	TimeoutSeconds   int        `json:"timeoutSeconds" yaml:"timeout_seconds"`
	StartedAt        *time.Time `json:"startedAt,omitempty" yaml:"started_at,omitempty"`
}

func newAppRow(v models.AppView) appRow {
	return appRow{
		Name:             v.Name(),
		Status:           string(v.Status),
		PID:              v.PID,
		Port:             v.Port,
		AppType:          string(v.Config.AppType),
		Execute:          v.Config.Execute,
		WorkingDirectory: v.Config.WorkingDirectory,
		Arguments:        v.Config.Arguments,
		Daemon:           v.Config.Daemon,
		Autostart:        v.Config.Autostart,
		TimeoutSeconds:   v.Config.TimeoutSeconds,
		StartedAt:        v.StartedAt,
	}
}

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list", "ps"},
	Short:   "List managed applications",
	Long: `List applications with their live status.

The search, tab and sort flags mirror the console's list view. Without
flags, the view saved with --save-view is used.`,
	Example: `  anyctl ls
  anyctl ls --tab running --sort pid --desc
  anyctl ls -q java -o json
  anyctl ls --autostart`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := listViewState(cmd)
		if err != nil {
			return err
		}

		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		views := c.Snapshot().Views
		if lsAutostart {
			filtered := make([]models.AppView, 0, len(views))
			for _, v := range views {
				if v.Config.Autostart {
					filtered = append(filtered, v)
				}
			}
			views = filtered
		}

		if lsAll || IsStructuredOutput() {
			st.PageSize = len(views) + 1
			st.Page = 1
		}
		proj := view.Project(views, st)

		if IsStructuredOutput() {
			rows := make([]appRow, len(proj.Items))
			for i, v := range proj.Items {
				rows[i] = newAppRow(v)
			}
			return WriteOutput(cmd.OutOrStdout(), rows)
		}

		if err := writeAppTable(cmd.OutOrStdout(), proj.Items, time.Now()); err != nil {
			return err
		}
		if proj.PageCount > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d matching, %d total). Use --page or --all.\n",
				proj.Page, proj.PageCount, len(proj.Matched), proj.Total)
		}
		if lsSaveView {
			return saveListView(st, c.Config.Supervisor.URL)
		}
		return nil
	},
}

// listViewState merges flags over the saved view context.
func listViewState(cmd *cobra.Command) (view.ViewState, error) {
	st := view.DefaultState()
	if cfg := GetConfig(); cfg != nil {
		st.PageSize = cfg.View.PageSize
		if key, err := view.ParseSortKey(cfg.View.DefaultSort); err == nil {
			st.SortKey = key
		}
	}

	if saved, err := config.NewContextStore("").Load(); err == nil && !saved.IsEmpty() {
		if tab, err := view.ParseTab(saved.Tab); err == nil && saved.Tab != "" {
			st.Tab = tab
		}
		if key, err := view.ParseSortKey(saved.SortKey); err == nil && saved.SortKey != "" {
			st.SortKey = key
		}
		st.SortDesc = saved.SortDesc
		st.Search = saved.Search
	}

	flags := cmd.Flags()
	if flags.Changed("search") {
		st.Search = lsSearch
	}
	if flags.Changed("tab") {
		tab, err := view.ParseTab(lsTab)
		if err != nil {
			return st, &PreflightError{Message: err.Error(), Hint: "Use --tab all, running or stopped", Code: ExitUsage}
		}
		st.Tab = tab
	}
	if flags.Changed("sort") {
		key, err := view.ParseSortKey(lsSort)
		if err != nil {
			return st, &PreflightError{Message: err.Error(), Hint: "Use --sort name, status, pid or port", Code: ExitUsage}
		}
		st.SortKey = key
	}
	if flags.Changed("desc") {
		st.SortDesc = lsDesc
	}
	st.Page = lsPage
	return st, nil
}

func saveListView(st view.ViewState, server string) error {
	store := config.NewContextStore("")
	err := store.Save(&config.Context{
		Tab:       string(st.Tab),
		Search:    st.Search,
		SortKey:   string(st.SortKey),
		SortDesc:  st.SortDesc,
		Server:    server,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	if IsVerbose() {
		fmt.Fprintf(os.Stderr, "saved view to %s\n", store.Path())
	}
	return nil
}

func writeAppTable(out io.Writer, views []models.AppView, now time.Time) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(out, "No applications.")
		return err
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			v.Name(),
			statusLabel(v.Status),
			formatOptionalInt(v.PID),
			formatOptionalInt(v.Port),
			string(v.Config.AppType),
			formatYesNo(v.Config.Autostart),
			formatUptime(v.StartedAt, now),
			strings.TrimSpace(v.Config.Execute + " " + strings.Join(v.Config.Arguments, " ")),
		})
	}
	return writeTable(out, []string{"NAME", "STATUS", "PID", "PORT", "TYPE", "AUTOSTART", "UPTIME", "COMMAND"}, rows)
}

func statusLabel(s models.Status) string {
	if !hasTTY() || IsStructuredOutput() {
		return string(s)
	}
	switch s {
	case models.StatusRunning:
		return "\x1b[32m" + string(s) + "\x1b[0m"
	case models.StatusStopped:
		return "\x1b[90m" + string(s) + "\x1b[0m"
	default:
		return "\x1b[33m" + string(s) + "\x1b[0m"
	}
}

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show one application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadApps(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		v, err := c.Find(args[0])
		if err != nil {
			return err
		}
		if IsStructuredOutput() {
			return WriteOutput(cmd.OutOrStdout(), newAppRow(v))
		}

		rows := [][]string{
			{"Name:", v.Name()},
			{"Status:", statusLabel(v.Status)},
			{"PID:", formatOptionalInt(v.PID)},
			{"Port:", formatOptionalInt(v.Port)},
			{"Uptime:", formatUptime(v.StartedAt, time.Now())},
			{"Type:", string(v.Config.AppType)},
			{"Execute:", v.Config.Execute},
			{"Arguments:", strings.Join(v.Config.Arguments, " ")},
			{"Directory:", v.Config.WorkingDirectory},
			{"Daemon:", formatYesNo(v.Config.Daemon)},
			{"Autostart:", formatYesNo(v.Config.Autostart)},
			{"Timeout:", fmt.Sprintf("%ds", v.Config.TimeoutSeconds)},
		}
		return writeTable(cmd.OutOrStdout(), nil, rows)
	},
}
