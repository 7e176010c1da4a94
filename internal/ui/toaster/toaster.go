// Package toaster shows one short notification in the corner of the
// terminal host.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/panesync/internal/ui/overlay"
	"github.com/zjrosen/panesync/internal/ui/theme"
)

// Style selects the border color and prefix of a toast.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

func (s Style) prefix() string {
	switch s {
	case StyleError:
		return "✗ "
	case StyleInfo:
		return "i "
	case StyleWarn:
		return "! "
	default:
		return "✓ "
	}
}

// Model holds the toast state.
type Model struct {
	message string
	style   Style
	visible bool
	seq     int
	palette theme.Palette
}

// New creates a hidden toaster using the dark palette.
func New() Model {
	return Model{palette: theme.Dark}
}

// WithPalette returns m drawing with p.
func (m Model) WithPalette(p theme.Palette) Model {
	m.palette = p
	return m
}

// Show replaces the current toast.
func (m Model) Show(message string, style Style) Model {
	m.message = message
	m.style = style
	m.visible = true
	m.seq++
	return m
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool {
	return m.visible
}

// Message returns the current toast text.
func (m Model) Message() string {
	return m.message
}

// View renders the toast box, or nothing when hidden.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}
	border := m.palette.Success
	switch m.style {
	case StyleError:
		border = m.palette.Error
	case StyleInfo:
		border = m.palette.Info
	case StyleWarn:
		border = m.palette.Warning
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(m.palette.Text).
		Render(m.style.prefix() + m.message)
}

// Overlay draws the toast in the top right corner of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.TopRight,
		PadX:     1,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg dismisses the toast shown as number Seq. Later toasts ignore it.
type DismissMsg struct{ Seq int }

// Dismiss handles a DismissMsg.
func (m Model) Dismiss(msg DismissMsg) Model {
	if msg.Seq != m.seq {
		return m
	}
	return m.Hide()
}

// ScheduleDismiss returns a command that dismisses the current toast after d.
func (m Model) ScheduleDismiss(d time.Duration) tea.Cmd {
	seq := m.seq
	return tea.Tick(d, func(time.Time) tea.Msg {
		return DismissMsg{Seq: seq}
	})
}
