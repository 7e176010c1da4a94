package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/simhost"
	"github.com/zjrosen/panesync/internal/storage"
	"github.com/zjrosen/panesync/internal/styles"
	"github.com/zjrosen/panesync/internal/ui/theme"
)

func paneZone(id host.PaneID) string {
	return "pane-" + string(id)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	p := theme.For(m.sess.Host.Theme())

	header := m.renderHeader(p)
	status := m.renderStatus(p)
	helpView := m.help.View(m.keys)
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(status)-lipgloss.Height(helpView), 3)

	view := lipgloss.JoinVertical(lipgloss.Left, header, m.renderPanes(p, bodyHeight), status, helpView)
	view = m.toaster.Overlay(view, m.width, m.height)
	if m.logOverlay.Visible() {
		view = m.logOverlay.Overlay(view)
	}
	return m.zones.Scan(view)
}

func (m Model) renderHeader(p theme.Palette) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(p.Title).Render("panesync")
	tabs := []string{title}
	for i, w := range m.sess.Host.Windows() {
		label := "main"
		if w.ID() != simhost.MainWindow {
			label = fmt.Sprintf("popout %d", i)
		}
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(p.Muted)
		if w.ID() == m.window {
			style = style.Foreground(p.Focus).Bold(true).Underline(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	right := lipgloss.NewStyle().Foreground(p.Muted).Render(
		fmt.Sprintf("%s · watchers %d", m.sess.Host.Theme(), m.sess.Engine.Watchers().Connected()))
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderPanes(p theme.Palette, height int) string {
	panes := m.windowPanes()
	if len(panes) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).Height(height).
			Foreground(p.Muted).Italic(true).
			Render("No panes in this window")
	}
	width := m.width / len(panes)
	rendered := make([]string, len(panes))
	for i, pane := range panes {
		w := width
		if i == len(panes)-1 {
			w = m.width - width*(len(panes)-1)
		}
		rendered[i] = m.zones.Mark(paneZone(pane.ID), m.renderPane(p, pane, w, height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderPane(p theme.Palette, pane simhost.Pane, width, height int) string {
	inner := max(width-2, 4)
	lines := max(height-2, 1)

	title := filepath.Base(pane.State.FilePath) + " · " + string(pane.State.Type)
	if d, ok := m.sess.Engine.Tracker().Lookup(pane.ID); ok && d.IsDirty() {
		title += " •"
	}
	title = truncate.StringWithTail(title, uint(inner), "…")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.Text)

	var content string
	switch pane.State.Type {
	case host.ViewTypeCanvas:
		content = m.renderCanvas(p, pane, inner)
	case host.ViewTypeText:
		content = m.renderText(p, pane, inner)
	}

	body := clampLines(titleStyle.Render(title)+"\n"+content, lines)
	border := p.Border
	if pane.ID == m.focus {
		border = p.Focus
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(inner).
		Height(lines).
		Render(body)
}

// renderCanvas draws the cards on the background broadcast into the
// pane's window, falling back to the view's own background.
func (m Model) renderCanvas(p theme.Palette, pane simhost.Pane, width int) string {
	c, ok := m.sess.Host.Canvas(pane.ID)
	if !ok {
		return ""
	}
	live := c.LiveState()
	if live.HasError {
		return lipgloss.NewStyle().Foreground(p.Error).Render("Could not load " + pane.State.FilePath)
	}

	bg := live.Background
	if w, ok := m.sess.Host.Window(pane.Window); ok {
		node := styles.LightNodeID
		if m.sess.Host.Theme() == host.ThemeDark {
			node = styles.DarkNodeID
		}
		if v := styles.Declarations(w.StyleNodes()[node])["--background-primary"]; theme.Valid(v) {
			bg = v
		}
	}
	card := lipgloss.NewStyle().Padding(0, 1).Width(width)
	if theme.Valid(bg) {
		card = card.Background(lipgloss.Color(bg)).Foreground(theme.Contrast(bg, p.Text))
	}

	cards := c.Cards()
	if len(cards) == 0 {
		return lipgloss.NewStyle().Foreground(p.Muted).Italic(true).Render("empty canvas")
	}
	out := make([]string, len(cards))
	for i, text := range cards {
		out[i] = card.Render(wordwrap.String("▪ "+text, max(width-2, 1)))
	}
	return strings.Join(out, "\n")
}

func (m Model) renderText(p theme.Palette, pane simhost.Pane, width int) string {
	data, err := m.sess.Store.Read(m.ctx, pane.State.FilePath)
	if err != nil {
		return lipgloss.NewStyle().Foreground(p.Error).Render(err.Error())
	}
	_, body := storage.SplitFrontmatter(data)
	out, err := m.md.Render(string(body), m.sess.Host.Theme(), width)
	if err != nil {
		return string(body)
	}
	return out
}

func (m Model) renderStatus(p theme.Palette) string {
	style := lipgloss.NewStyle().Foreground(p.Muted)
	st, ok := m.sess.Host.PaneState(m.focus)
	if !ok {
		return style.Render("no pane focused")
	}
	parts := []string{st.FilePath, string(st.Type)}
	if d, ok := m.sess.Engine.Tracker().Lookup(m.focus); ok {
		parts = append(parts, fmt.Sprintf("rev %d", d.Revision()))
		if d.IsDirty() {
			parts = append(parts, "unsaved")
		}
	}
	if m.sess.Host.Marked(st.FilePath) {
		parts = append(parts, "canvas file")
	}
	if m.sess.Journal != nil {
		parts = append(parts, "journal")
	}
	return style.Render(truncate.StringWithTail(strings.Join(parts, " · "), uint(max(m.width, 1)), "…"))
}

func clampLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
