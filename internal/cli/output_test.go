package cli

import (
	"bytes"
	"strings"
	"testing"
)

func withOutputFormat(t *testing.T, format string) {
	t.Helper()
	prev := outputFormat
	outputFormat = format
	t.Cleanup(func() { outputFormat = prev })
}

func TestWriteOutputJSONL(t *testing.T) {
	withOutputFormat(t, formatJSONL)

	var buf bytes.Buffer
	rows := []appRow{{Name: "web", Status: "running"}, {Name: "db", Status: "stopped"}}
	if err := WriteOutput(&buf, rows); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per row, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"name":"web"`) || !strings.Contains(lines[1], `"name":"db"`) {
		t.Errorf("unexpected lines %q", lines)
	}
}

func TestWriteOutputYAML(t *testing.T) {
	withOutputFormat(t, formatYAML)

	var buf bytes.Buffer
	if err := WriteOutput(&buf, appRow{Name: "web", AppType: "java", TimeoutSeconds: 30}); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"name: web", "app_type: java", "timeout_seconds: 30"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestWriteOutputJSON(t *testing.T) {
	withOutputFormat(t, formatJSON)

	var buf bytes.Buffer
	if err := WriteOutput(&buf, []appRow{{Name: "web"}}); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, `"name": "web"`) {
		t.Errorf("expected an indented JSON array, got %q", out)
	}
}

func TestNextStepsSilentForStructuredOutput(t *testing.T) {
	withOutputFormat(t, formatJSON)
	var buf bytes.Buffer
	PrintNextSteps(&buf, HintContext{Action: "login", FirstLogin: true})
	if buf.Len() != 0 {
		t.Errorf("expected no hints, got %q", buf.String())
	}
}

func TestNextStepsFirstLogin(t *testing.T) {
	withOutputFormat(t, formatTable)
	var buf bytes.Buffer
	PrintNextSteps(&buf, HintContext{Action: "login", FirstLogin: true})
	if !strings.Contains(buf.String(), "anyctl passwd") {
		t.Errorf("expected a passwd hint, got %q", buf.String())
	}
}

func TestCommandSurfaceJSON(t *testing.T) {
	data, err := CommandSurfaceJSON()
	if err != nil {
		t.Fatalf("CommandSurfaceJSON: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"cli": "anyctl"`, `"name": "ls"`, `"name": "restart"`, `"long": "server-side"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in manifest", want)
		}
	}
	if strings.Contains(out, `"name": "commands"`) {
		t.Error("hidden commands must not be listed")
	}
}
