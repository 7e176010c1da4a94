// Package theme holds the terminal host's chrome colors for the light and
// dark host themes.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/zjrosen/panesync/internal/host"
)

// Palette is the set of chrome colors for one host theme.
type Palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Focus   lipgloss.Color
	Title   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
	Canvas  lipgloss.Color // default canvas card background
}

var (
	Light = Palette{
		Text:    "#222222",
		Muted:   "#5C5C5C",
		Border:  "#C8C8C8",
		Focus:   "#705DCF",
		Title:   "#4B3FA0",
		Success: "#2E8B57",
		Warning: "#B8860B",
		Error:   "#C0392B",
		Info:    "#2F6FB2",
		Canvas:  "#FFFFFF",
	}
	Dark = Palette{
		Text:    "#DADADA",
		Muted:   "#999999",
		Border:  "#444444",
		Focus:   "#8A5CF5",
		Title:   "#B8A6FF",
		Success: "#73D216",
		Warning: "#FECA57",
		Error:   "#FF6B6B",
		Info:    "#54A0FF",
		Canvas:  "#1E1E1E",
	}
)

// For returns the palette of t. Unknown themes read as dark.
func For(t host.Theme) Palette {
	if t == host.ThemeLight {
		return Light
	}
	return Dark
}

// Contrast picks a readable foreground for a background color given as a
// hex string. Unparsable input falls back to fallback.
func Contrast(bg string, fallback lipgloss.Color) lipgloss.Color {
	c, err := colorful.Hex(bg)
	if err != nil {
		return fallback
	}
	l, _, _ := c.Lab()
	if l > 0.6 {
		return Light.Text
	}
	return Dark.Text
}

// Valid reports whether s is a hex color lipgloss and Contrast understand.
func Valid(s string) bool {
	_, err := colorful.Hex(s)
	return err == nil
}
