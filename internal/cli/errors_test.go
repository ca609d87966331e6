package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tOgg1/anyrun/internal/models"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitFailure},
		{"auth", &models.Error{Kind: models.KindAuthFailure, Op: "list"}, ExitAuth},
		{"password mismatch", &models.Error{Kind: models.KindPasswordMismatch}, ExitAuth},
		{"validation", &models.Error{Kind: models.KindValidationFailure}, ExitUsage},
		{"conflict wrapped", fmt.Errorf("save: %w", &models.Error{Kind: models.KindConflict}), ExitUsage},
		{"duplicate", &models.Error{Kind: models.KindDuplicateName}, ExitUsage},
		{"not found", &models.Error{Kind: models.KindNotFound}, ExitFailure},
		{"preflight default", &PreflightError{Message: "x"}, ExitFailure},
		{"preflight code", &PreflightError{Message: "x", Code: ExitAuth}, ExitAuth},
		{"exit error", Exitf(7, "custom"), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReportErrorPreflight(t *testing.T) {
	var buf bytes.Buffer
	code := reportError(&buf, &PreflightError{
		Message:  "not logged in",
		Hint:     "Log in first",
		NextStep: "anyctl login",
		Code:     ExitAuth,
	})
	if code != ExitAuth {
		t.Fatalf("expected exit %d, got %d", ExitAuth, code)
	}
	out := buf.String()
	for _, want := range []string{"Error: not logged in", "Hint: Log in first", "Try: anyctl login"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestReportErrorKindHint(t *testing.T) {
	var buf bytes.Buffer
	code := reportError(&buf, &models.Error{Kind: models.KindNotFound, Op: "status", App: "web"})
	if code != ExitFailure {
		t.Fatalf("expected exit %d, got %d", ExitFailure, code)
	}
	if !strings.Contains(buf.String(), "anyctl ls") {
		t.Errorf("expected a hint pointing at ls, got %q", buf.String())
	}
}

func TestReportErrorSilent(t *testing.T) {
	var buf bytes.Buffer
	code := reportError(&buf, &ExitError{Code: ExitUsage, Err: errors.New("already shown"), Printed: true})
	if code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing printed, got %q", buf.String())
	}

	buf.Reset()
	reportError(&buf, context.Canceled)
	if buf.Len() != 0 {
		t.Errorf("expected cancellation to be silent, got %q", buf.String())
	}
}
