// Package testutil provides in-memory host fakes and a builder assembling
// them into a workspace fixture.
package testutil

import (
	"testing"

	"github.com/zjrosen/panesync/internal/host"
)

// DefaultWindow is the primary window created by every fixture.
const DefaultWindow host.WindowID = "main"

// Fixture is a fully wired fake host.
type Fixture struct {
	Workspace *Workspace
	Windows   map[host.WindowID]*Window
	Views     map[host.PaneID]*View
	Events    *UIEvents
	Chain     *Chain
	Files     *FileList
}

// View returns the view in pane, failing the test when missing.
func (f *Fixture) View(t *testing.T, pane host.PaneID) *View {
	t.Helper()
	v, ok := f.Views[pane]
	if !ok {
		t.Fatalf("no view in pane %s", pane)
	}
	return v
}

// Window returns window id, failing the test when missing.
func (f *Fixture) Window(t *testing.T, id host.WindowID) *Window {
	t.Helper()
	w, ok := f.Windows[id]
	if !ok {
		t.Fatalf("no window %s", id)
	}
	return w
}

type textPane struct {
	pane host.PaneID
	path string
}

// Builder accumulates windows, panes and views.
type Builder struct {
	t         *testing.T
	windows   []host.WindowID
	views     []viewData
	texts     []textPane
	files     []string
	variables bool
}

// NewBuilder creates a builder with the default window.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, windows: []host.WindowID{DefaultWindow}}
}

// WithWindow adds a window.
func (b *Builder) WithWindow(id host.WindowID) *Builder {
	for _, w := range b.windows {
		if w == id {
			return b
		}
	}
	b.windows = append(b.windows, id)
	return b
}

// WithView adds a canvas pane showing path.
func (b *Builder) WithView(pane host.PaneID, path string, opts ...ViewOption) *Builder {
	v := defaultView(pane, path)
	for _, opt := range opts {
		opt(&v)
	}
	b.WithWindow(v.window)
	b.views = append(b.views, v)
	return b
}

// WithTextPane adds a text pane showing path.
func (b *Builder) WithTextPane(pane host.PaneID, path string) *Builder {
	b.texts = append(b.texts, textPane{pane: pane, path: path})
	return b
}

// WithFiles renders paths in the file listing.
func (b *Builder) WithFiles(paths ...string) *Builder {
	b.files = append(b.files, paths...)
	return b
}

// Build creates the fakes.
func (b *Builder) Build() *Fixture {
	b.t.Helper()
	f := &Fixture{
		Windows: make(map[host.WindowID]*Window),
		Views:   make(map[host.PaneID]*View),
		Events:  NewUIEvents(),
		Chain:   NewChain(),
		Files:   NewFileList(b.files...),
	}

	windows := make([]host.Window, 0, len(b.windows))
	for _, id := range b.windows {
		w := NewWindow(id)
		if b.variables {
			w.SetVars(host.ThemeLight, LightVariables)
			w.SetVars(host.ThemeDark, DarkVariables)
		}
		f.Windows[id] = w
		windows = append(windows, w)
	}
	f.Workspace = NewWorkspace(windows...)

	for _, v := range b.views {
		view := NewView(v.pane, v.window, v.path)
		if v.dirty {
			view.Edit()
		}
		view.SetSaveError(v.saveErr)
		view.SetLiveState(host.LiveState{
			Theme:           v.theme,
			Background:      BackgroundFor(v.theme),
			TracksHostTheme: !v.fixed,
			HasError:        v.hasError,
		})
		f.Views[v.pane] = view
		f.Workspace.AddPane(v.pane, host.PaneState{Type: host.ViewTypeCanvas, FilePath: v.path})
	}
	for _, p := range b.texts {
		f.Workspace.AddPane(p.pane, host.PaneState{Type: host.ViewTypeText, FilePath: p.path})
	}
	return f
}
