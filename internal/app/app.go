// Package app contains the root model of the terminal host.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/keys"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/pubsub"
	"github.com/zjrosen/panesync/internal/session"
	"github.com/zjrosen/panesync/internal/simhost"
	"github.com/zjrosen/panesync/internal/storage"
	"github.com/zjrosen/panesync/internal/tracker"
	"github.com/zjrosen/panesync/internal/ui/logoverlay"
	"github.com/zjrosen/panesync/internal/ui/markdown"
	"github.com/zjrosen/panesync/internal/ui/theme"
	"github.com/zjrosen/panesync/internal/ui/toaster"
)

const toastDuration = 3 * time.Second

type notificationMsg = pubsub.Event[core.Notification]

// Model is the root application state.
type Model struct {
	ctx  context.Context
	sess *session.Session
	keys keys.AppKeyMap

	help    help.Model
	zones   *zone.Manager
	md      *markdown.Renderer
	toaster toaster.Model

	debugMode    bool
	logOverlay   logoverlay.Model
	logListenCmd tea.Cmd

	notes <-chan notificationMsg

	window   host.WindowID
	focus    host.PaneID
	showHelp bool
	width    int
	height   int
}

// New creates the root model over an open session. The first pane, if
// any, gets focus. debugMode enables the log overlay.
func New(ctx context.Context, sess *session.Session, debugMode bool) Model {
	m := Model{
		ctx:        ctx,
		sess:       sess,
		keys:       keys.App,
		help:       help.New(),
		zones:      zone.New(),
		md:         markdown.New(),
		toaster:    toaster.New(),
		debugMode:  debugMode,
		logOverlay: logoverlay.New(),
		notes:      sess.Ctx.Notifications.Subscribe(ctx),
		window:     simhost.MainWindow,
	}
	if debugMode {
		m.logListenCmd = m.logOverlay.StartListening(ctx)
	}
	m.applyPalette()
	if panes := sess.Host.Panes(); len(panes) > 0 {
		m.focusPane(panes[0].ID)
	}
	return m
}

// Init starts listening for engine notifications and log entries.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{pubsub.ListenCmd(m.ctx, m.notes)}
	if m.logListenCmd != nil {
		cmds = append(cmds, m.logListenCmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.logOverlay.SetSize(msg.Width, msg.Height)
		m.sess.Engine.LayoutChanged()
		return m, nil

	case notificationMsg:
		cmd := m.notify(msg)
		return m, tea.Batch(cmd, pubsub.ListenCmd(m.ctx, m.notes))

	case log.LogEvent:
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd

	case logoverlay.CloseMsg:
		m.logOverlay.Hide()
		return m, nil

	case toaster.DismissMsg:
		m.toaster = m.toaster.Dismiss(msg)
		return m, nil

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		for _, p := range m.windowPanes() {
			if z := m.zones.Get(paneZone(p.ID)); z != nil && z.InBounds(msg) {
				m.focusPane(p.ID)
				break
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.debugMode && key.Matches(msg, m.keys.Logs) {
		m.logOverlay.Toggle()
		return m, nil
	}
	if m.logOverlay.Visible() {
		var cmd tea.Cmd
		m.logOverlay, cmd = m.logOverlay.Update(msg)
		return m, cmd
	}
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// The active canvas view's overrides sit in front of the host chain.
	if m.sess.Host.Dispatch(msg.String()) {
		log.Debug(log.CatHotkey, "Key handled by canvas scope", "key", msg.String())
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.NextPane):
		m.cycle(1)
	case key.Matches(msg, m.keys.PrevPane):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Edit):
		cmd = m.edit()
	case key.Matches(msg, m.keys.Save):
		cmd = m.save()
	case key.Matches(msg, m.keys.ToggleMode):
		cmd = m.toggle()
	case key.Matches(msg, m.keys.OpenAsText):
		cmd = m.openAsText()
	case key.Matches(msg, m.keys.ToggleTheme):
		m.sess.Host.SetTheme(m.sess.Host.Theme().Other())
		m.applyPalette()
	case key.Matches(msg, m.keys.Restyle):
		if err := m.sess.Engine.StyleChanged(m.ctx); err != nil {
			cmd = m.toast(fmt.Sprintf("Style refresh failed: %v", err), toaster.StyleError)
		} else {
			cmd = m.toast("Styles re-harvested", toaster.StyleInfo)
		}
	case key.Matches(msg, m.keys.Overlay):
		m.sess.Host.ShowOverlay(m.window)
	case key.Matches(msg, m.keys.Drawer):
		m.sess.Host.ToggleDrawer(m.window)
	case key.Matches(msg, m.keys.Annotate):
		m.sess.Host.RefreshFileList()
	case key.Matches(msg, m.keys.NewWindow):
		cmd = m.popout()
	case key.Matches(msg, m.keys.CloseWindow):
		cmd = m.closeWindow()
	case key.Matches(msg, m.keys.ClosePane):
		m.closePane()
	}
	return m, cmd
}

// Close releases the mouse zone worker. The session is closed by its owner.
func (m Model) Close() {
	m.zones.Close()
}

func (m *Model) applyPalette() {
	p := theme.For(m.sess.Host.Theme())
	m.toaster = m.toaster.WithPalette(p)
	m.logOverlay.SetPalette(p)
}

func (m *Model) toast(message string, style toaster.Style) tea.Cmd {
	m.toaster = m.toaster.Show(message, style)
	return m.toaster.ScheduleDismiss(toastDuration)
}

func (m *Model) notify(ev notificationMsg) tea.Cmd {
	n := ev.Payload
	switch ev.Type {
	case core.SaveCompleted:
		return m.toast(fmt.Sprintf("Saved %s (rev %d)", n.Path, n.Revision), toaster.StyleSuccess)
	case core.SaveFailed:
		return m.toast(fmt.Sprintf("Save failed for %s: %v", n.Path, n.Err), toaster.StyleError)
	case core.ModeChanged:
		return m.toast(fmt.Sprintf("%s now shows as %s", n.Path, n.Mode), toaster.StyleInfo)
	case core.ObserverDisabled:
		return m.toast(fmt.Sprintf("%s watcher disabled: %v", n.Source, n.Err), toaster.StyleWarn)
	}
	return nil
}

// windowPanes returns the panes of the current window.
func (m Model) windowPanes() []simhost.Pane {
	var out []simhost.Pane
	for _, p := range m.sess.Host.Panes() {
		if p.Window == m.window {
			out = append(out, p)
		}
	}
	return out
}

func (m Model) leaf() tracker.Leaf {
	st, ok := m.sess.Host.PaneState(m.focus)
	if !ok {
		return tracker.Leaf{}
	}
	return tracker.Leaf{Pane: m.focus, Type: st.Type, FilePath: st.FilePath}
}

func (m *Model) focusPane(id host.PaneID) {
	origin := m.leaf()
	m.focus = id
	for _, p := range m.sess.Host.Panes() {
		if p.ID == id {
			m.window = p.Window
		}
	}
	m.sess.Engine.ActivePaneChanged(m.ctx, id, origin)
	m.sess.Engine.LayoutChanged()
}

// cycle moves focus through every pane of every window.
func (m *Model) cycle(delta int) {
	panes := m.sess.Host.Panes()
	if len(panes) == 0 {
		return
	}
	idx := slices.IndexFunc(panes, func(p simhost.Pane) bool { return p.ID == m.focus })
	next := (idx + delta + len(panes)) % len(panes)
	if idx < 0 {
		next = 0
	}
	m.focusPane(panes[next].ID)
}

func (m *Model) edit() tea.Cmd {
	st, ok := m.sess.Host.PaneState(m.focus)
	if !ok {
		return nil
	}
	switch st.Type {
	case host.ViewTypeCanvas:
		c, ok := m.sess.Host.Canvas(m.focus)
		if !ok {
			return nil
		}
		c.AddCard(fmt.Sprintf("card %d", len(c.Cards())+1))
		m.sess.Engine.Edited(m.focus)
	case host.ViewTypeText:
		data, err := m.sess.Store.Read(m.ctx, st.FilePath)
		if err != nil {
			return m.toast(fmt.Sprintf("Cannot read %s: %v", st.FilePath, err), toaster.StyleError)
		}
		_, body := storage.SplitFrontmatter(data)
		line := fmt.Sprintf("- note %s\n", m.sess.Ctx.Clock.Now().Format("15:04:05"))
		err = m.sess.Host.SaveText(m.ctx, st.FilePath, string(body)+line)
		switch {
		case errors.Is(err, simhost.ErrSuppressed):
			return m.toast("Text save held back while the file switches to canvas", toaster.StyleWarn)
		case err != nil:
			return m.toast(fmt.Sprintf("Save failed for %s: %v", st.FilePath, err), toaster.StyleError)
		}
	}
	return nil
}

// save flushes the focused canvas view. With a non mod+s save shortcut the
// canvas scope has no save override, so the document is saved directly.
func (m *Model) save() tea.Cmd {
	d, ok := m.sess.Engine.Tracker().Lookup(m.focus)
	if !ok {
		return nil
	}
	if m.sess.Host.Dispatch(keys.Canvas.Save.Keys()[0]) {
		return nil
	}
	m.sess.Engine.Autosave().Cancel(m.focus)
	// Failures arrive as a SaveFailed notification.
	_ = d.Save(m.ctx, false)
	return nil
}

func (m *Model) toggle() tea.Cmd {
	st, ok := m.sess.Host.PaneState(m.focus)
	if !ok {
		return nil
	}
	origin := m.leaf()
	if _, err := m.sess.Engine.ToggleMode(m.ctx, m.focus, st.FilePath); err != nil {
		return m.toast(fmt.Sprintf("Toggle failed: %v", err), toaster.StyleError)
	}
	// The pane now holds a different view; make it the active one.
	m.sess.Engine.ActivePaneChanged(m.ctx, m.focus, origin)
	return nil
}

// openAsText opens the focused file again in a new text pane.
func (m *Model) openAsText() tea.Cmd {
	st, ok := m.sess.Host.PaneState(m.focus)
	if !ok || st.FilePath == "" {
		return nil
	}
	m.sess.Engine.OpenAsText(st.FilePath)
	id, err := m.sess.OpenPane(m.ctx, m.window, st.FilePath)
	if err != nil {
		return m.toast(fmt.Sprintf("Open failed: %v", err), toaster.StyleError)
	}
	m.focusPane(id)
	return nil
}

// popout opens a new window showing the focused file.
func (m *Model) popout() tea.Cmd {
	st, ok := m.sess.Host.PaneState(m.focus)
	w := m.sess.OpenWindow()
	m.window = w.ID()
	if !ok || st.FilePath == "" {
		return nil
	}
	id, err := m.sess.OpenPane(m.ctx, w.ID(), st.FilePath)
	if err != nil {
		return m.toast(fmt.Sprintf("Open failed: %v", err), toaster.StyleError)
	}
	m.focusPane(id)
	return nil
}

func (m *Model) closeWindow() tea.Cmd {
	if m.window == simhost.MainWindow {
		return m.toast("The main window cannot be closed", toaster.StyleWarn)
	}
	m.sess.CloseWindow(m.window)
	m.window = simhost.MainWindow
	m.refocus()
	return nil
}

func (m *Model) closePane() {
	if m.focus == "" {
		return
	}
	m.sess.ClosePane(m.focus)
	m.refocus()
}

// refocus moves focus to the first pane of the current window after the
// focused pane went away.
func (m *Model) refocus() {
	m.focus = ""
	if panes := m.windowPanes(); len(panes) > 0 {
		m.focusPane(panes[0].ID)
		return
	}
	m.sess.Engine.ActivePaneChanged(m.ctx, "", tracker.Leaf{})
}
