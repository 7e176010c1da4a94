// Package simhost is an in-process host for panesync: panes and windows in
// memory, documents on disk through storage.Store. The terminal UI and the
// replay command drive the engine against it.
package simhost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/storage"
)

// MainWindow is the ID of the window every host starts with.
const MainWindow host.WindowID = "main"

// ErrSuppressed is returned by SaveText while a competing canvas switch is
// in progress for the file.
var ErrSuppressed = errors.New("text save suppressed")

// Callbacks connect the host to whatever coordinates it. Every field is
// optional.
type Callbacks struct {
	// ViewOpened runs after a canvas view was created in a pane.
	ViewOpened func(ctx context.Context, view host.CanvasView)
	// ViewClosed runs after the canvas view of pane was destroyed.
	ViewClosed func(pane host.PaneID)
	// SuppressTextSave holds back text-mode saves of a path.
	SuppressTextSave func(path string) bool
}

// Pane is a snapshot of one pane.
type Pane struct {
	ID     host.PaneID
	Window host.WindowID
	State  host.PaneState
}

type pane struct {
	window host.WindowID
	state  host.PaneState
	canvas *Canvas
}

// Host implements every host interface panesync consumes.
type Host struct {
	store *storage.Store

	mu       sync.Mutex
	cb       Callbacks
	hook     host.PaneStateHook
	hookSeq  int
	windows  []*Window
	panes    map[host.PaneID]*pane
	order    []host.PaneID
	theme    host.Theme
	drawers  map[host.WindowID]bool
	markers  map[string]bool
	events   *events
	handlers *chain
}

var (
	_ host.Workspace   = (*Host)(nil)
	_ host.UIEvents    = (*Host)(nil)
	_ host.HotkeyChain = (*Host)(nil)
	_ host.FileList    = (*Host)(nil)
)

// New creates a host with one window over store.
func New(store *storage.Store) *Host {
	return &Host{
		store:    store,
		windows:  []*Window{newWindow(MainWindow)},
		panes:    make(map[host.PaneID]*pane),
		theme:    host.ThemeLight,
		drawers:  make(map[host.WindowID]bool),
		markers:  make(map[string]bool),
		events:   newEvents(),
		handlers: &chain{},
	}
}

// SetCallbacks replaces the callbacks.
func (h *Host) SetCallbacks(cb Callbacks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cb = cb
}

func (h *Host) callbacks() Callbacks {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cb
}

// Store returns the backing storage.
func (h *Host) Store() *storage.Store { return h.store }

func (h *Host) OnBeforePaneStateChange(hook host.PaneStateHook) func() {
	h.mu.Lock()
	h.hookSeq++
	seq := h.hookSeq
	h.hook = hook
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.hookSeq == seq {
			h.hook = nil
		}
	}
}

// OpenPane creates a pane in window showing path as text; the interception
// hook may turn it into a canvas.
func (h *Host) OpenPane(ctx context.Context, window host.WindowID, path string) (host.PaneID, error) {
	if h.window(window) == nil {
		return "", fmt.Errorf("opening pane: unknown window %s", window)
	}
	id := host.PaneID(uuid.NewString())
	h.mu.Lock()
	h.panes[id] = &pane{window: window, state: host.PaneState{Type: host.ViewTypeEmpty}}
	h.order = append(h.order, id)
	h.mu.Unlock()

	if err := h.SetPaneState(ctx, id, host.PaneState{Type: host.ViewTypeText, FilePath: path}); err != nil {
		return "", err
	}
	log.Debug(log.CatUI, "Pane opened", "pane", id, "window", window, "path", path)
	return id, nil
}

// ClosePane destroys pane and its canvas view.
func (h *Host) ClosePane(id host.PaneID) bool {
	h.mu.Lock()
	p, ok := h.panes[id]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.panes, id)
	h.order = slices.DeleteFunc(h.order, func(x host.PaneID) bool { return x == id })
	cb := h.cb
	h.mu.Unlock()

	if p.canvas != nil && cb.ViewClosed != nil {
		cb.ViewClosed(id)
	}
	return true
}

// SetPaneState runs the interception hook and applies the result, creating
// or destroying the pane's canvas view as needed.
func (h *Host) SetPaneState(ctx context.Context, id host.PaneID, state host.PaneState) error {
	h.mu.Lock()
	if _, ok := h.panes[id]; !ok {
		h.mu.Unlock()
		return host.ErrPaneNotFound
	}
	hook := h.hook
	h.mu.Unlock()

	applied := state
	if hook != nil {
		applied = hook(id, state)
	}

	h.mu.Lock()
	p, ok := h.panes[id]
	if !ok {
		h.mu.Unlock()
		return host.ErrPaneNotFound
	}
	closed := p.canvas
	keep := closed != nil && applied.Type == host.ViewTypeCanvas && closed.FilePath() == applied.FilePath
	if keep {
		closed = nil
	} else {
		p.canvas = nil
	}
	var opened *Canvas
	if applied.Type == host.ViewTypeCanvas && !keep {
		opened = newCanvas(ctx, h.store, id, p.window, applied.FilePath, h.theme)
		p.canvas = opened
	}
	p.state = applied
	cb := h.cb
	h.mu.Unlock()

	if closed != nil && cb.ViewClosed != nil {
		cb.ViewClosed(id)
	}
	if opened != nil && cb.ViewOpened != nil {
		cb.ViewOpened(ctx, opened)
	}
	return nil
}

func (h *Host) HasPane(id host.PaneID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.panes[id]
	return ok
}

// Panes returns every pane in creation order.
func (h *Host) Panes() []Pane {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Pane, 0, len(h.order))
	for _, id := range h.order {
		p := h.panes[id]
		out = append(out, Pane{ID: id, Window: p.window, State: p.state})
	}
	return out
}

// PaneState returns the state of pane.
func (h *Host) PaneState(id host.PaneID) (host.PaneState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.panes[id]
	if !ok {
		return host.PaneState{}, false
	}
	return p.state, true
}

// Canvas returns the canvas view in pane.
func (h *Host) Canvas(id host.PaneID) (*Canvas, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.panes[id]
	if !ok || p.canvas == nil {
		return nil, false
	}
	return p.canvas, true
}

// SaveText writes body below path's existing frontmatter on behalf of a
// text pane.
func (h *Host) SaveText(ctx context.Context, path, body string) error {
	if cb := h.callbacks(); cb.SuppressTextSave != nil && cb.SuppressTextSave(path) {
		log.Info(log.CatSave, "Text save held back", "path", path)
		return ErrSuppressed
	}
	var front []byte
	if data, err := h.store.Read(ctx, path); err == nil {
		front, _ = storage.SplitFrontmatter(data)
	}
	data := []byte(body)
	if front != nil {
		data = append([]byte("---\n"+string(front)+"---\n"), data...)
	}
	return h.store.Write(ctx, path, data)
}

// RenameFile renames path on disk and in every pane showing it.
func (h *Host) RenameFile(ctx context.Context, from, to string) error {
	if err := h.store.Rename(ctx, from, to); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.panes {
		if p.state.FilePath != from {
			continue
		}
		p.state.FilePath = to
		if p.canvas != nil {
			p.canvas.setPath(to)
		}
	}
	return nil
}

func (h *Host) window(id host.WindowID) *Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.id == id {
			return w
		}
	}
	return nil
}

// Window returns window id.
func (h *Host) Window(id host.WindowID) (*Window, bool) {
	w := h.window(id)
	return w, w != nil
}

func (h *Host) Windows() []host.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Window, len(h.windows))
	for i, w := range h.windows {
		out[i] = w
	}
	return out
}

func (h *Host) PrimaryWindow() host.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.windows) == 0 {
		return nil
	}
	return h.windows[0]
}

// OpenWindow creates a window.
func (h *Host) OpenWindow() *Window {
	w := newWindow(host.WindowID(uuid.NewString()))
	h.mu.Lock()
	h.windows = append(h.windows, w)
	h.mu.Unlock()
	return w
}

// CloseWindow closes window id and its panes, returning the closed panes.
// The main window cannot be closed.
func (h *Host) CloseWindow(id host.WindowID) ([]host.PaneID, bool) {
	if id == MainWindow {
		return nil, false
	}
	h.mu.Lock()
	idx := slices.IndexFunc(h.windows, func(w *Window) bool { return w.id == id })
	if idx < 0 {
		h.mu.Unlock()
		return nil, false
	}
	h.windows = slices.Delete(h.windows, idx, idx+1)
	var panes []host.PaneID
	for _, pid := range h.order {
		if h.panes[pid].window == id {
			panes = append(panes, pid)
		}
	}
	h.mu.Unlock()

	for _, pid := range panes {
		h.ClosePane(pid)
	}
	return panes, true
}

// Theme returns the host theme.
func (h *Host) Theme() host.Theme {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.theme
}

// SetTheme switches the host theme and emits a theme-changed event.
func (h *Host) SetTheme(theme host.Theme) {
	h.mu.Lock()
	h.theme = theme
	h.mu.Unlock()
	h.events.emit(host.UIEvent{Kind: host.EventThemeChanged, Window: MainWindow, Theme: theme})
}

// ShowOverlay simulates a modal container inserting one node into window.
func (h *Host) ShowOverlay(window host.WindowID) {
	h.events.emit(host.UIEvent{
		Kind:    host.EventOverlayAppeared,
		Window:  window,
		Records: []host.MutationRecord{{AddedNodes: 1}},
	})
}

// ToggleDrawer flips window's side drawer and reports whether it is now
// hidden.
func (h *Host) ToggleDrawer(window host.WindowID) bool {
	h.mu.Lock()
	hidden := !h.drawers[window]
	h.drawers[window] = hidden
	h.mu.Unlock()
	h.events.emit(host.UIEvent{Kind: host.EventDrawerToggled, Window: window, Drawer: "left", Hidden: hidden})
	return hidden
}

// RefreshFileList re-renders the file listing.
func (h *Host) RefreshFileList() {
	h.events.emit(host.UIEvent{Kind: host.EventFileListChanged, Window: MainWindow, Entries: h.Entries()})
}

func (h *Host) Observe(kind host.EventKind, fn func(host.UIEvent)) (host.Subscription, error) {
	return h.events.observe(kind, fn), nil
}

func (h *Host) RegisterFront(k host.KeyHandler) (host.HandlerID, error) {
	return h.handlers.registerFront(k), nil
}

func (h *Host) Unregister(id host.HandlerID) {
	h.handlers.unregister(id)
}

// Dispatch runs the front-most handler bound to key. Reports whether the
// key was consumed.
func (h *Host) Dispatch(key string) bool {
	return h.handlers.dispatch(key)
}

// Handlers returns the registered key handlers, front first.
func (h *Host) Handlers() []host.KeyHandler {
	return h.handlers.list()
}

// Entries lists every document in the store.
func (h *Host) Entries() []host.FileEntry {
	paths, err := h.store.List(context.Background())
	if err != nil {
		log.WarnErr(log.CatFS, "Listing documents failed", err)
		return nil
	}
	entries := make([]host.FileEntry, len(paths))
	for i, p := range paths {
		entries[i] = host.FileEntry{Path: p}
	}
	return entries
}

func (h *Host) SetMarker(path string, marked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if marked {
		h.markers[path] = true
	} else {
		delete(h.markers, path)
	}
}

// Marked reports whether path carries the canvas marker in the listing.
func (h *Host) Marked(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.markers[path]
}
