package apptui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/anyrun/internal/models"
)

type tuiPalette struct {
	Name       string
	Background string
	Panel      string
	PanelAlt   string
	Text       string
	TextMuted  string
	Border     string
	Accent     string
	Focus      string
	Success    string
	Warning    string
	Error      string
	Info       string
}

// ThemeNames lists the palettes in cycling order.
var ThemeNames = []string{"default", "high-contrast", "ocean", "sunset"}

var palettes = map[string]tuiPalette{
	"default": {
		Name:       "default",
		Background: "#0B0F14",
		Panel:      "#121821",
		PanelAlt:   "#1A2330",
		Text:       "#E6EDF3",
		TextMuted:  "#8B9AAE",
		Border:     "#223043",
		Accent:     "#5B8DEF",
		Focus:      "#7AA2F7",
		Success:    "#3FB950",
		Warning:    "#D29922",
		Error:      "#F85149",
		Info:       "#58A6FF",
	},
	"high-contrast": {
		Name:       "high-contrast",
		Background: "#000000",
		Panel:      "#0A0A0A",
		PanelAlt:   "#262626",
		Text:       "#FFFFFF",
		TextMuted:  "#C0C0C0",
		Border:     "#FFFFFF",
		Accent:     "#00A2FF",
		Focus:      "#FFD400",
		Success:    "#00FF5A",
		Warning:    "#FFB000",
		Error:      "#FF4040",
		Info:       "#66CCFF",
	},
	"ocean": {
		Name:       "ocean",
		Background: "#07121A",
		Panel:      "#0C1B27",
		PanelAlt:   "#133044",
		Text:       "#D8ECF7",
		TextMuted:  "#78A2B8",
		Border:     "#1E4A61",
		Accent:     "#3DD3FF",
		Focus:      "#71E0FF",
		Success:    "#55E39F",
		Warning:    "#FFC857",
		Error:      "#FF6B6B",
		Info:       "#4CC9F0",
	},
	"sunset": {
		Name:       "sunset",
		Background: "#140C10",
		Panel:      "#201218",
		PanelAlt:   "#331D27",
		Text:       "#F6E7E4",
		TextMuted:  "#C89A90",
		Border:     "#5D2E3F",
		Accent:     "#FF8C5A",
		Focus:      "#FFB077",
		Success:    "#7ED957",
		Warning:    "#FFD166",
		Error:      "#FF5D73",
		Info:       "#7FD1FF",
	},
}

func resolvePalette(name string) tuiPalette {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if palette, ok := palettes[trimmed]; ok {
		return palette
	}
	return palettes["default"]
}

func (p tuiPalette) fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func (p tuiPalette) statusStyle(status models.Status) lipgloss.Style {
	switch status {
	case models.StatusRunning:
		return p.fg(p.Success).Bold(true)
	case models.StatusStopped:
		return p.fg(p.TextMuted)
	default:
		return p.fg(p.Warning)
	}
}

func (p tuiPalette) levelStyle(level models.NotificationLevel) lipgloss.Style {
	switch level {
	case models.LevelSuccess:
		return p.fg(p.Success)
	case models.LevelError:
		return p.fg(p.Error).Bold(true)
	default:
		return p.fg(p.Info)
	}
}
