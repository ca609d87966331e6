// Package cli provides actionable next-step hints for CLI commands.
package cli

import (
	"fmt"
	"io"
)

// HintContext provides context for generating relevant next steps.
type HintContext struct {
	// Action is the command that was executed (e.g., "add", "login", "stop")
	Action string

	// App is the application involved (if any)
	App string

	// Apps is a list of applications involved (for batch operations)
	Apps []string

	// FirstLogin is set when the supervisor still uses its initial password
	FirstLogin bool
}

// PrintNextSteps prints contextual next steps after a successful command.
// Does nothing for structured output.
func PrintNextSteps(out io.Writer, ctx HintContext) {
	if IsStructuredOutput() {
		return
	}

	hints := generateHints(ctx)
	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	for _, hint := range hints {
		fmt.Fprintf(out, "  %s\n", hint)
	}
}

// generateHints generates context-aware hints for the given action.
func generateHints(ctx HintContext) []string {
	switch ctx.Action {
	case "login":
		return hintsForLogin(ctx)
	case "add":
		return hintsForAdd(ctx)
	case "stop":
		return hintsForStop(ctx)
	case "import":
		return hintsForImport(ctx)
	default:
		return nil
	}
}

func hintsForLogin(ctx HintContext) []string {
	hints := make([]string, 0, 3)
	if ctx.FirstLogin {
		hints = append(hints, "anyctl passwd                       # Replace the initial password")
	}
	hints = append(hints,
		"anyctl ls                           # List applications",
		"anyctl ui                           # Open the live console",
	)
	return hints
}

func hintsForAdd(ctx HintContext) []string {
	if ctx.App == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("anyctl start %s                  # Start it", ctx.App),
		fmt.Sprintf("anyctl status %s                 # Check status", ctx.App),
	}
}

func hintsForStop(ctx HintContext) []string {
	app := ctx.App
	if app == "" && len(ctx.Apps) == 1 {
		app = ctx.Apps[0]
	}
	if app == "" {
		return []string{"anyctl start --all                  # Start everything again"}
	}
	return []string{
		fmt.Sprintf("anyctl start %s                  # Start it again", app),
		fmt.Sprintf("anyctl rm %s                     # Remove it", app),
	}
}

func hintsForImport(ctx HintContext) []string {
	hints := []string{"anyctl ls                           # Review imported applications"}
	if len(ctx.Apps) > 0 {
		hints = append(hints, "anyctl start --all                  # Start everything")
	}
	return hints
}
