package apptui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

func truncateLine(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	return runewidth.Truncate(stripANSI(text), width, "...")
}

func padRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(text)
	if w >= width {
		return runewidth.Truncate(text, width, "")
	}
	return text + strings.Repeat(" ", width-w)
}

func stripANSI(in string) string {
	builder := strings.Builder{}
	builder.Grow(len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != 0x1b {
			builder.WriteByte(c)
			continue
		}
		if i+1 >= len(in) || in[i+1] != '[' {
			i++
			continue
		}
		i += 2
		for ; i < len(in); i++ {
			if b := in[i]; b >= 0x40 && b <= 0x7E {
				break
			}
		}
	}
	return builder.String()
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}

func formatUptime(started *time.Time, now time.Time) string {
	if started == nil || started.IsZero() || now.Before(*started) {
		return "-"
	}
	d := now.Sub(*started).Round(time.Second)
	switch {
	case d < time.Minute:
		return strconv.Itoa(int(d.Seconds())) + "s"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m"
	case d < 48*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + "d"
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
