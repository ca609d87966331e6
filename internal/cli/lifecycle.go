package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/dispatch"
	"github.com/tOgg1/anyrun/internal/models"
)

var (
	lifecycleAll        bool
	lifecycleServerSide bool
	lifecycleWait       bool
)

func init() {
	for _, kind := range []models.ActionKind{models.ActionStart, models.ActionStop, models.ActionRestart} {
		cmd := newLifecycleCmd(kind)
		cmd.Flags().BoolVarP(&lifecycleAll, "all", "a", false, "apply to every application")
		cmd.Flags().BoolVar(&lifecycleServerSide, "server-side", false, "with --all, use the supervisor's bulk endpoint")
		cmd.Flags().BoolVarP(&lifecycleWait, "wait", "w", false, "wait for the next poll and print the resulting status")
		rootCmd.AddCommand(cmd)
	}
}

func newLifecycleCmd(kind models.ActionKind) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind) + " [name...]",
		Short: fmt.Sprintf("%s applications", capitalize(string(kind))),
		Example: fmt.Sprintf(`  anyctl %[1]s web
  anyctl %[1]s web worker
  anyctl %[1]s --all`, kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lifecycleAll == (len(args) > 0) {
				return &PreflightError{
					Message: "name one or more applications, or pass --all",
					Hint:    "anyctl ls shows the available names",
					Code:    ExitUsage,
				}
			}
			if lifecycleServerSide && !lifecycleAll {
				return &PreflightError{Message: "--server-side requires --all", Code: ExitUsage}
			}

			c, err := loadApps(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return runLifecycle(cmd, c, kind, args)
		},
	}
}

func runLifecycle(cmd *cobra.Command, c *console.Console, kind models.ActionKind, names []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var result dispatch.BatchResult
	switch {
	case lifecycleServerSide:
		if err := c.Dispatcher.ServerSideAll(ctx, kind); err != nil {
			return err
		}
		result.Succeeded = c.Snapshot().Names()
	case lifecycleAll:
		result = c.Dispatcher.Batch(ctx, kind, c.Snapshot().Names())
	case len(names) == 1:
		if _, err := c.Find(names[0]); err != nil {
			return err
		}
		if err := c.Dispatcher.Do(ctx, names[0], kind); err != nil {
			return err
		}
		result.Succeeded = names
	default:
		result = c.Dispatcher.Batch(ctx, kind, names)
	}

	if lifecycleWait {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Config.Poller.ConfirmDelay):
		}
		if err := c.Refresh(ctx); err != nil {
			return err
		}
	}

	if IsStructuredOutput() {
		type failure struct {
			Name  string `json:"name" yaml:"name"`
			Error string `json:"error" yaml:"error"`
		}
		payload := struct {
			Action    string    `json:"action" yaml:"action"`
			Succeeded []string  `json:"succeeded" yaml:"succeeded"`
			Failed    []failure `json:"failed" yaml:"failed"`
		}{Action: string(kind), Succeeded: result.Succeeded, Failed: []failure{}}
		for name, err := range result.Failed {
			payload.Failed = append(payload.Failed, failure{Name: name, Error: err.Error()})
		}
		if err := WriteOutput(out, payload); err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return &ExitError{Code: exitCode(err), Err: err, Printed: true}
		}
		return nil
	}

	for _, name := range result.Succeeded {
		line := fmt.Sprintf("%s %s", kind.PastTense(), name)
		if lifecycleWait {
			if v, err := c.Find(name); err == nil {
				line += " (" + string(v.Status) + ")"
			}
		}
		fmt.Fprintln(out, line)
	}
	if err := result.Err(); err != nil {
		return err
	}

	ctxHint := HintContext{Action: string(kind), Apps: result.Succeeded}
	if len(names) == 1 {
		ctxHint.App = names[0]
	}
	PrintNextSteps(out, ctxHint)
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
