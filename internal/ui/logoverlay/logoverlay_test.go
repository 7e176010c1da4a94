package logoverlay

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/ui/theme"
)

func TestMain(m *testing.M) {
	log.InitWriter(io.Discard)
	os.Exit(m.Run())
}

func visible(t *testing.T) Model {
	t.Helper()
	m := New()
	m.SetSize(100, 40)
	m.Toggle()
	require.True(t, m.Visible())
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNew(t *testing.T) {
	m := New()

	require.False(t, m.Visible())
	require.Empty(t, m.View())
	require.Equal(t, log.LevelDebug, m.minLevel)
}

func TestToggleAndHide(t *testing.T) {
	m := New()
	m.Toggle()
	require.True(t, m.Visible())
	m.Hide()
	require.False(t, m.Visible())
}

func TestUpdate_IgnoresKeysWhenHidden(t *testing.T) {
	m := New()

	m, cmd := m.Update(key("e"))

	require.Nil(t, cmd)
	require.Equal(t, log.LevelDebug, m.minLevel)
}

func TestUpdate_FilterKeys(t *testing.T) {
	tests := []struct {
		key  string
		want log.Level
	}{
		{"i", log.LevelInfo},
		{"w", log.LevelWarn},
		{"e", log.LevelError},
		{"d", log.LevelDebug},
	}
	m := visible(t)
	for _, tt := range tests {
		m, _ = m.Update(key(tt.key))
		require.Equal(t, tt.want, m.minLevel, tt.key)
	}
}

func TestUpdate_Close(t *testing.T) {
	for _, k := range []string{"esc", "ctrl+x"} {
		t.Run(k, func(t *testing.T) {
			m := visible(t)

			m, cmd := m.Update(key(k))

			require.False(t, m.Visible())
			require.NotNil(t, cmd)
			require.Equal(t, CloseMsg{}, cmd())
		})
	}
}

func TestUpdate_ClearBuffer(t *testing.T) {
	log.Info(log.CatUI, "before clear")
	m := visible(t)

	m, _ = m.Update(key("c"))

	require.Empty(t, log.GetRecentLogs(10))
	require.Contains(t, m.View(), "No logs to display")
}

func TestView_FiltersByLevel(t *testing.T) {
	log.ClearBuffer()
	log.Debug(log.CatSave, "debug entry")
	log.Warn(log.CatSave, "warn entry")
	m := visible(t)

	require.Contains(t, m.View(), "debug entry")
	require.Contains(t, m.View(), "warn entry")

	m, _ = m.Update(key("w"))
	require.NotContains(t, m.View(), "debug entry")
	require.Contains(t, m.View(), "warn entry")
}

func TestView_HintsAndBorder(t *testing.T) {
	m := visible(t)
	m.SetPalette(theme.Light)
	view := m.View()

	require.Contains(t, view, "Logs")
	for _, hint := range []string{"[c] Clear", "[d] Debug", "[i] Info", "[w] Warn", "[e] Error", "[r] Wrap"} {
		require.Contains(t, view, hint)
	}
	require.Contains(t, view, "╭")
}

func TestView_WrapKeepsLongEntries(t *testing.T) {
	log.ClearBuffer()
	long := strings.Repeat("word ", 40) + "tail"
	log.Info(log.CatUI, long)
	m := visible(t)

	require.NotContains(t, m.View(), "tail")

	m, _ = m.Update(key("r"))
	require.True(t, m.wrap)
	require.Contains(t, m.View(), "tail")
}

func TestLevelOf(t *testing.T) {
	l, ok := levelOf("2026-01-01T00:00:00 [WARN] [save] x")
	require.True(t, ok)
	require.Equal(t, log.LevelWarn, l)

	_, ok = levelOf("plain text")
	require.False(t, ok)
}

func TestOverlay(t *testing.T) {
	bg := strings.Repeat(strings.Repeat(".", 100)+"\n", 39) + strings.Repeat(".", 100)
	require.Equal(t, bg, New().Overlay(bg))

	m := visible(t)
	out := m.Overlay(bg)
	require.Contains(t, out, "Logs")
	require.Len(t, strings.Split(out, "\n"), 40)
}

func TestStartListening_ReceivesEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := visible(t)
	cmd := m.StartListening(ctx)
	require.NotNil(t, cmd)

	log.Error(log.CatUI, "listened entry")
	msg := cmd()
	ev, ok := msg.(log.LogEvent)
	require.True(t, ok)
	require.Contains(t, ev.Payload, "listened entry")

	m, next := m.Update(ev)
	require.NotNil(t, next)
	require.Contains(t, m.View(), "listened entry")
}
