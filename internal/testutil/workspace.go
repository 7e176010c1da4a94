package testutil

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/zjrosen/panesync/internal/host"
)

// Window is an in-memory host.Window. Computed style values come from the
// per-theme variable tables set with SetVar.
type Window struct {
	id host.WindowID

	mu         sync.Mutex
	nodes      map[string]string
	vars       map[host.Theme]map[string]string
	surfaceErr error
	upsertErr  error
	gate       chan struct{}
	waiting    int
	opened     int
	closed     int
	upserts    int
}

// NewWindow creates a window with no style nodes.
func NewWindow(id host.WindowID) *Window {
	return &Window{
		id:    id,
		nodes: make(map[string]string),
		vars: map[host.Theme]map[string]string{
			host.ThemeLight: {},
			host.ThemeDark:  {},
		},
	}
}

func (w *Window) ID() host.WindowID { return w.id }

// SetVar sets the computed value of property under theme.
func (w *Window) SetVar(theme host.Theme, property, value string) {
	w.mu.Lock()
	w.vars[theme][property] = value
	w.mu.Unlock()
}

// SetVars sets several computed values under theme.
func (w *Window) SetVars(theme host.Theme, values map[string]string) {
	w.mu.Lock()
	maps.Copy(w.vars[theme], values)
	w.mu.Unlock()
}

// SetSurfaceError makes NewRenderSurface fail with err.
func (w *Window) SetSurfaceError(err error) {
	w.mu.Lock()
	w.surfaceErr = err
	w.mu.Unlock()
}

// SetUpsertError makes UpsertStyleNode fail with err.
func (w *Window) SetUpsertError(err error) {
	w.mu.Lock()
	w.upsertErr = err
	w.mu.Unlock()
}

// BlockSurfaces makes NewRenderSurface wait until release is called.
func (w *Window) BlockSurfaces() (release func()) {
	gate := make(chan struct{})
	w.mu.Lock()
	w.gate = gate
	w.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.gate = nil
			w.mu.Unlock()
			close(gate)
		})
	}
}

func (w *Window) UpsertStyleNode(id, css string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.upsertErr != nil {
		return w.upsertErr
	}
	w.nodes[id] = css
	w.upserts++
	return nil
}

func (w *Window) RemoveStyleNode(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.nodes, id)
	return nil
}

func (w *Window) StyleNodes() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.nodes)
}

func (w *Window) NewRenderSurface() (host.RenderSurface, error) {
	w.mu.Lock()
	gate := w.gate
	if gate != nil {
		w.waiting++
	}
	w.mu.Unlock()
	if gate != nil {
		<-gate
		w.mu.Lock()
		w.waiting--
		w.mu.Unlock()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.surfaceErr != nil {
		return nil, w.surfaceErr
	}
	w.opened++
	return &surface{w: w, theme: host.ThemeLight}, nil
}

// Waiting returns how many NewRenderSurface calls are parked on the gate.
func (w *Window) Waiting() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waiting
}

// SurfacesOpened returns how many render surfaces were created.
func (w *Window) SurfacesOpened() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opened
}

// SurfacesOpen returns how many render surfaces are not yet closed.
func (w *Window) SurfacesOpen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opened - w.closed
}

// Upserts returns the number of successful UpsertStyleNode calls.
func (w *Window) Upserts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.upserts
}

type surface struct {
	w      *Window
	theme  host.Theme
	closed bool
}

func (s *surface) SetTheme(theme host.Theme) { s.theme = theme }

func (s *surface) Computed(property string) string {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.w.vars[s.theme][property]
}

func (s *surface) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.w.mu.Lock()
	s.w.closed++
	s.w.mu.Unlock()
}

// Workspace is an in-memory host.Workspace.
type Workspace struct {
	mu      sync.Mutex
	hook    host.PaneStateHook
	hookSeq int
	panes   map[host.PaneID]host.PaneState
	order   []host.PaneID
	windows []host.Window
	applied []AppliedState
}

// AppliedState records one SetPaneState after interception.
type AppliedState struct {
	Pane      host.PaneID
	Requested host.PaneState
	Applied   host.PaneState
}

// NewWorkspace creates a workspace with the given windows; the first is
// the primary window.
func NewWorkspace(windows ...host.Window) *Workspace {
	return &Workspace{
		panes:   make(map[host.PaneID]host.PaneState),
		windows: windows,
	}
}

func (ws *Workspace) OnBeforePaneStateChange(hook host.PaneStateHook) func() {
	ws.mu.Lock()
	ws.hookSeq++
	seq := ws.hookSeq
	ws.hook = hook
	ws.mu.Unlock()
	return func() {
		ws.mu.Lock()
		if ws.hookSeq == seq {
			ws.hook = nil
		}
		ws.mu.Unlock()
	}
}

// Hooked reports whether an interception hook is installed.
func (ws *Workspace) Hooked() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.hook != nil
}

// AddPane creates a pane without running the hook.
func (ws *Workspace) AddPane(pane host.PaneID, state host.PaneState) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.panes[pane]; !ok {
		ws.order = append(ws.order, pane)
	}
	ws.panes[pane] = state
}

// RemovePane deletes a pane.
func (ws *Workspace) RemovePane(pane host.PaneID) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	delete(ws.panes, pane)
	ws.order = slices.DeleteFunc(ws.order, func(p host.PaneID) bool { return p == pane })
}

func (ws *Workspace) SetPaneState(_ context.Context, pane host.PaneID, state host.PaneState) error {
	ws.mu.Lock()
	if _, ok := ws.panes[pane]; !ok {
		ws.mu.Unlock()
		return host.ErrPaneNotFound
	}
	hook := ws.hook
	ws.mu.Unlock()

	applied := state
	if hook != nil {
		applied = hook(pane, state)
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.panes[pane]; !ok {
		return host.ErrPaneNotFound
	}
	ws.panes[pane] = applied
	ws.applied = append(ws.applied, AppliedState{Pane: pane, Requested: state, Applied: applied})
	return nil
}

// PaneState returns the current state of pane.
func (ws *Workspace) PaneState(pane host.PaneID) (host.PaneState, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	s, ok := ws.panes[pane]
	return s, ok
}

// Panes returns pane IDs in creation order.
func (ws *Workspace) Panes() []host.PaneID {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return slices.Clone(ws.order)
}

// Applied returns every SetPaneState outcome.
func (ws *Workspace) Applied() []AppliedState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return slices.Clone(ws.applied)
}

func (ws *Workspace) HasPane(pane host.PaneID) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_, ok := ws.panes[pane]
	return ok
}

// AddWindow opens another window.
func (ws *Workspace) AddWindow(w host.Window) {
	ws.mu.Lock()
	ws.windows = append(ws.windows, w)
	ws.mu.Unlock()
}

// RemoveWindow closes a window.
func (ws *Workspace) RemoveWindow(id host.WindowID) {
	ws.mu.Lock()
	ws.windows = slices.DeleteFunc(ws.windows, func(w host.Window) bool { return w.ID() == id })
	ws.mu.Unlock()
}

func (ws *Workspace) Windows() []host.Window {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return slices.Clone(ws.windows)
}

func (ws *Workspace) PrimaryWindow() host.Window {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.windows) == 0 {
		return nil
	}
	return ws.windows[0]
}

// UIEvents is an in-memory host.UIEvents. Emit delivers synchronously.
type UIEvents struct {
	mu    sync.Mutex
	next  int
	subs  map[host.EventKind]map[int]func(host.UIEvent)
	fails map[host.EventKind]error
}

// NewUIEvents creates an event source with no observers.
func NewUIEvents() *UIEvents {
	return &UIEvents{
		subs:  make(map[host.EventKind]map[int]func(host.UIEvent)),
		fails: make(map[host.EventKind]error),
	}
}

// FailObserve makes Observe(kind) fail with err (nil to clear).
func (u *UIEvents) FailObserve(kind host.EventKind, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err == nil {
		delete(u.fails, kind)
		return
	}
	u.fails[kind] = err
}

func (u *UIEvents) Observe(kind host.EventKind, fn func(host.UIEvent)) (host.Subscription, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.fails[kind]; err != nil {
		return nil, err
	}
	u.next++
	id := u.next
	if u.subs[kind] == nil {
		u.subs[kind] = make(map[int]func(host.UIEvent))
	}
	u.subs[kind][id] = fn
	return &subscription{u: u, kind: kind, id: id}, nil
}

// Emit delivers ev to every observer of its kind.
func (u *UIEvents) Emit(ev host.UIEvent) {
	u.mu.Lock()
	fns := slices.Collect(maps.Values(u.subs[ev.Kind]))
	u.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Observers returns the number of observers of kind.
func (u *UIEvents) Observers(kind host.EventKind) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.subs[kind])
}

type subscription struct {
	u    *UIEvents
	kind host.EventKind
	id   int
}

func (s *subscription) Unsubscribe() {
	s.u.mu.Lock()
	delete(s.u.subs[s.kind], s.id)
	s.u.mu.Unlock()
}

// FileList is an in-memory host.FileList.
type FileList struct {
	mu      sync.Mutex
	entries []host.FileEntry
	markers map[string]bool
}

// NewFileList creates a listing rendering paths.
func NewFileList(paths ...string) *FileList {
	l := &FileList{markers: make(map[string]bool)}
	l.SetPaths(paths...)
	return l
}

// SetPaths replaces the rendered entries.
func (l *FileList) SetPaths(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	for _, p := range paths {
		l.entries = append(l.entries, host.FileEntry{Path: p})
	}
}

func (l *FileList) Entries() []host.FileEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

func (l *FileList) SetMarker(path string, marked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if marked {
		l.markers[path] = true
		return
	}
	delete(l.markers, path)
}

// Marked returns the sorted set of marked paths.
func (l *FileList) Marked() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Sorted(maps.Keys(l.markers))
}
