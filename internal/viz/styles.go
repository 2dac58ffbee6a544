package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme for the live view.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "neon",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Text:    lipgloss.Color("252"),
		Muted:   lipgloss.Color("240"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	},
	{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00cc00"),
		Muted:   lipgloss.Color("#006600"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ccff00"),
		Error:   lipgloss.Color("#ff3300"),
	},
	{
		Name:    "mono",
		Primary: lipgloss.Color("255"),
		Accent:  lipgloss.Color("250"),
		Text:    lipgloss.Color("252"),
		Muted:   lipgloss.Color("242"),
		Success: lipgloss.Color("255"),
		Warning: lipgloss.Color("250"),
		Error:   lipgloss.Color("255"),
	},
}

// styles is the set of lipgloss styles derived from one Theme.
type styles struct {
	canvas, stats, header, label, value, active, graph, help lipgloss.Style
	running, paused, failing                                 lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(t.Primary),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		header:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		active:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:   lipgloss.NewStyle().Foreground(t.Success).Padding(1, 0),
		help:    lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		running: lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		paused:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		failing: lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}

// Bar renders a fixed-width bar for a value in [-1, 1], filled from the
// center toward the value's sign.
func Bar(v float64, width int) string {
	half := width / 2
	n := int(v*float64(half) + 0.5*sign(v))
	n = max(-half, min(half, n))

	left := strings.Repeat("-", half)
	right := strings.Repeat("-", half)
	if n < 0 {
		left = strings.Repeat("-", half+n) + strings.Repeat("=", -n)
	} else if n > 0 {
		right = strings.Repeat("=", n) + strings.Repeat("-", half-n)
	}
	return "[" + left + "|" + right + "]"
}

func sign(v float64) float64 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
