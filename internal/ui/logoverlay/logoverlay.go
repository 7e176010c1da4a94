// Package logoverlay shows the recent log buffer on top of the terminal
// host without leaving it.
package logoverlay

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/ui/overlay"
	"github.com/zjrosen/panesync/internal/ui/theme"
)

const (
	viewportMaxHeight = 25
	viewportMinHeight = 5
	boxMaxWidth       = 160
	boxMinWidth       = 40
	chromeLines       = 6 // header, footer and their dividers, borders
)

// CloseMsg is sent when the overlay closes itself.
type CloseMsg struct{}

// Model is the log overlay state.
type Model struct {
	visible  bool
	wrap     bool
	minLevel log.Level
	width    int
	height   int
	palette  theme.Palette
	viewport viewport.Model
	listener *log.LogListener
}

// New creates a hidden overlay showing every level.
func New() Model {
	return Model{minLevel: log.LevelDebug, palette: theme.Dark}
}

// StartListening subscribes to new log entries. Returns nil when logging is
// not initialized.
func (m *Model) StartListening(ctx context.Context) tea.Cmd {
	m.listener = log.NewListener(ctx)
	if m.listener == nil {
		return nil
	}
	return m.listener.Listen()
}

// SetPalette switches the overlay colors.
func (m *Model) SetPalette(p theme.Palette) {
	m.palette = p
	m.refresh()
}

// Update handles keys while visible and keeps listening for log entries.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case log.LogEvent:
		if m.visible {
			m.refresh()
			m.viewport.GotoBottom()
		}
		if m.listener != nil {
			return m, m.listener.Listen()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		switch msg.String() {
		case "c":
			log.ClearBuffer()
		case "d":
			m.minLevel = log.LevelDebug
		case "i":
			m.minLevel = log.LevelInfo
		case "w":
			m.minLevel = log.LevelWarn
		case "e":
			m.minLevel = log.LevelError
		case "r":
			m.wrap = !m.wrap
		case "j", "down":
			m.viewport.ScrollDown(1)
			return m, nil
		case "k", "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+x", "esc":
			m.visible = false
			return m, func() tea.Msg { return CloseMsg{} }
		default:
			return m, nil
		}
		m.refresh()
	}
	return m, nil
}

// View renders the bordered log box, or nothing when hidden.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	width := m.boxWidth()
	divider := lipgloss.NewStyle().Foreground(m.palette.Border).Render(strings.Repeat("─", width))
	title := lipgloss.NewStyle().Bold(true).Foreground(m.palette.Title).PaddingLeft(1).Render("Logs")

	body := strings.Join([]string{title, divider, m.viewport.View(), divider, m.hints()}, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.palette.Border).
		Width(width).
		Render(body)
}

// Overlay draws the box centered over bg.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center}, m.View(), bg)
}

// Visible reports whether the overlay is showing.
func (m Model) Visible() bool {
	return m.visible
}

// Toggle shows or hides the overlay.
func (m *Model) Toggle() {
	m.visible = !m.visible
	m.refresh()
}

// Hide closes the overlay.
func (m *Model) Hide() {
	m.visible = false
}

// SetSize records the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.refresh()
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

func (m *Model) refresh() {
	if m.width == 0 || m.height == 0 {
		return
	}
	contentWidth := m.boxWidth() - 2
	height := max(min(viewportMaxHeight, m.height-chromeLines), viewportMinHeight)
	m.viewport = viewport.New(contentWidth, height)
	m.viewport.SetContent(m.content(contentWidth))
}

func (m Model) content(width int) string {
	var lines []string
	for _, entry := range log.GetRecentLogs(log.BufferSize()) {
		level, ok := levelOf(entry)
		if ok && level < m.minLevel {
			continue
		}
		lines = append(lines, m.render(entry, level, ok, width))
	}
	if len(lines) == 0 {
		return lipgloss.NewStyle().Foreground(m.palette.Muted).Italic(true).Render("No logs to display")
	}
	return strings.Join(lines, "\n")
}

// levelOf reads the level tag the logger writes after the timestamp.
func levelOf(entry string) (log.Level, bool) {
	for _, l := range []log.Level{log.LevelError, log.LevelWarn, log.LevelInfo, log.LevelDebug} {
		if strings.Contains(entry, "["+l.String()+"]") {
			return l, true
		}
	}
	return 0, false
}

func (m Model) render(entry string, level log.Level, known bool, width int) string {
	entry = strings.TrimSuffix(entry, "\n")
	if m.wrap {
		entry = wordwrap.String(entry, width)
	} else if ansi.StringWidth(entry) > width {
		entry = ansi.Truncate(entry, width-3, "...")
	}

	color := m.palette.Text
	if known {
		switch level {
		case log.LevelError:
			color = m.palette.Error
		case log.LevelWarn:
			color = m.palette.Warning
		case log.LevelInfo:
			color = m.palette.Info
		case log.LevelDebug:
			color = m.palette.Muted
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(entry)
}

func (m Model) hints() string {
	muted := lipgloss.NewStyle().Foreground(m.palette.Muted)
	active := lipgloss.NewStyle().Foreground(m.palette.Text).Bold(true)

	parts := []string{muted.Render("[c] Clear")}
	for _, f := range []struct {
		level log.Level
		label string
	}{
		{log.LevelDebug, "[d] Debug"},
		{log.LevelInfo, "[i] Info"},
		{log.LevelWarn, "[w] Warn"},
		{log.LevelError, "[e] Error"},
	} {
		if f.level == m.minLevel {
			parts = append(parts, active.Render(f.label))
		} else {
			parts = append(parts, muted.Render(f.label))
		}
	}
	if m.wrap {
		parts = append(parts, active.Render("[r] Wrap"))
	} else {
		parts = append(parts, muted.Render("[r] Wrap"))
	}
	return strings.Join(parts, "  ")
}
