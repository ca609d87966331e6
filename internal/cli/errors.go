package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tOgg1/anyrun/internal/models"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitAuth    = 2
	ExitUsage   = 3
)

// PreflightError is a failure detected before any change was made, with
// guidance on how to fix it.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string

	// Code overrides the exit code; zero means ExitFailure.
	Code int
}

func (e *PreflightError) Error() string {
	return e.Message
}

// ExitError carries an exit code for an error already reported.
type ExitError struct {
	Code    int
	Err     error
	Printed bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf builds an ExitError from a formatted message.
func Exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// exitCode maps err onto a process exit code.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var preflight *PreflightError
	if errors.As(err, &preflight) && preflight.Code != 0 {
		return preflight.Code
	}
	switch models.KindOf(err) {
	case models.KindAuthFailure, models.KindPasswordMismatch:
		return ExitAuth
	case models.KindValidationFailure, models.KindConflict, models.KindDuplicateName:
		return ExitUsage
	}
	return ExitFailure
}

// reportError writes err with any hint to w and returns the exit code.
func reportError(w io.Writer, err error) int {
	code := exitCode(err)
	if errors.Is(err, context.Canceled) {
		return ExitFailure
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Printed {
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	var preflight *PreflightError
	if errors.As(err, &preflight) {
		if preflight.Hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", preflight.Hint)
		}
		if preflight.NextStep != "" {
			fmt.Fprintf(w, "Try: %s\n", preflight.NextStep)
		}
		return code
	}

	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
	return code
}

func hintFor(err error) string {
	switch models.KindOf(err) {
	case models.KindAuthFailure:
		return "your session is missing or expired; run `anyctl login`"
	case models.KindConflict:
		return "the configuration changed on the supervisor; re-run the command"
	case models.KindNetworkFailure:
		return "check that the supervisor is reachable (--server or supervisor.url)"
	case models.KindNotFound:
		return "run `anyctl ls` to see managed applications"
	}
	if strings.Contains(err.Error(), "connection refused") {
		return "check that the supervisor is running"
	}
	return ""
}
