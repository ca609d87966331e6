package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

func TestWriteTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"NAME", "STATUS"}, [][]string{
		{"网关", "running"},
		{"web", "\x1b[32mstopped\x1b[0m"},
	})
	if err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	col := func(line string) int {
		plain := stripANSI(line)
		idx := strings.Index(plain, "  ")
		for idx < len(plain) && plain[idx] == ' ' {
			idx++
		}
		return runewidth.StringWidth(plain[:idx])
	}
	want := col(lines[0])
	for _, line := range lines[1:] {
		if got := col(line); got != want {
			t.Errorf("second column starts at %d, want %d in %q", got, want, line)
		}
	}
}

func TestTruncateCell(t *testing.T) {
	short := "java -jar web.jar"
	if got := truncateCell(short); got != short {
		t.Errorf("short cell changed: %q", got)
	}

	long := strings.Repeat("x", maxCellWidth+10)
	got := truncateCell(long)
	if runewidth.StringWidth(got) != maxCellWidth || !strings.HasSuffix(got, "…") {
		t.Errorf("unexpected truncation %q (width %d)", got, runewidth.StringWidth(got))
	}

	colored := "\x1b[32m" + long + "\x1b[0m"
	if truncateCell(colored) != colored {
		t.Error("colored cells must not be cut mid-sequence")
	}
}

func TestFormatUptime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	tests := []struct {
		started *time.Time
		want    string
	}{
		{nil, "-"},
		{at(-time.Minute), "-"},
		{at(42 * time.Second), "42s"},
		{at(5 * time.Minute), "5m"},
		{at(3 * time.Hour), "3h"},
		{at(72 * time.Hour), "3d"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.started, now); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.started, got, tt.want)
		}
	}
}

func TestFormatOptionalInt(t *testing.T) {
	if got := formatOptionalInt(nil); got != "-" {
		t.Errorf("nil: got %q", got)
	}
	n := 8080
	if got := formatOptionalInt(&n); got != "8080" {
		t.Errorf("8080: got %q", got)
	}
}
