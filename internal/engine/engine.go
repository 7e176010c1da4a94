// Package engine wires the coordination components together and routes the
// host's lifecycle callbacks to them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/panesync/internal/autosave"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/hotkeys"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/styles"
	"github.com/zjrosen/panesync/internal/tracker"
	"github.com/zjrosen/panesync/internal/viewmode"
	"github.com/zjrosen/panesync/internal/watchers"
)

// ErrTornDown is returned by operations called after Teardown.
var ErrTornDown = errors.New("engine torn down")

// Journal is the save journal. Renames and deletes keep its history keyed
// by the current path.
type Journal interface {
	tracker.Journal
	Rename(ctx context.Context, from, to string) error
	Forget(ctx context.Context, path string) error
}

// MetadataCache drops cached document metadata.
type MetadataCache interface {
	Invalidate(ctx context.Context, paths ...string)
}

// Deps are the host collaborators.
type Deps struct {
	// Workspace is the pane/window system. Required.
	Workspace host.Workspace

	// Events is the presentation layer's UI-event source. Required.
	Events host.UIEvents

	// Hotkeys is the key handler chain. Required.
	Hotkeys host.HotkeyChain

	// IsCanvas reports whether a document carries the canvas-default marker.
	// If nil, every document defaults to text.
	IsCanvas viewmode.CanvasDefaultFunc

	// Files is the file listing decorated by the annotation watcher.
	// Optional.
	Files host.FileList

	// Journal records saves. Optional; also gated by the journal config
	// switch and the save-journal flag.
	Journal Journal

	// Metadata is invalidated on rename and delete. Optional.
	Metadata MetadataCache
}

// Engine owns one instance of every component.
type Engine struct {
	baseCtx context.Context
	ctx     *core.Context
	deps    Deps
	journal Journal

	registry    *viewmode.Registry
	interceptor *viewmode.Interceptor
	tracker     *tracker.Tracker
	autosave    *autosave.Scheduler
	watchers    *watchers.Set
	styles      *styles.Engine
	hotkeys     *hotkeys.Stack

	mu       sync.Mutex
	started  bool
	tornDown bool
}

// New builds an engine. Timer and event driven saves run under baseCtx.
func New(baseCtx context.Context, ctx *core.Context, deps Deps) *Engine {
	e := &Engine{
		baseCtx: baseCtx,
		ctx:     ctx,
		deps:    deps,
	}
	if deps.Journal != nil && ctx.Config.Journal.Enabled && ctx.Flags.Enabled(flags.FlagSaveJournal) {
		e.journal = deps.Journal
	}

	e.hotkeys = hotkeys.New(ctx, deps.Hotkeys)

	opts := []tracker.Option{tracker.WithScope(e.hotkeys, e.bindings)}
	if e.journal != nil {
		opts = append(opts, tracker.WithJournal(e.journal))
	}
	e.tracker = tracker.New(baseCtx, ctx, opts...)

	e.registry = viewmode.NewRegistry(ctx, deps.IsCanvas)
	e.interceptor = viewmode.NewInterceptor(ctx, e.registry, e.tracker)
	e.autosave = autosave.New(ctx, e.flush)
	e.styles = styles.New(ctx, deps.Workspace)
	e.watchers = watchers.NewSet(baseCtx, ctx, watchers.Deps{
		Events:   deps.Events,
		Views:    e.tracker,
		Files:    deps.Files,
		IsCanvas: deps.IsCanvas,
	})
	return e
}

// Start harvests and broadcasts styles, installs the pane-state hook and
// enables the watchers. Style and watcher failures are logged and do not
// stop the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.tornDown {
		e.mu.Unlock()
		return ErrTornDown
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if err := e.styles.Refresh(ctx); err != nil {
		log.WarnErr(log.CatStyle, "Initial style harvest failed", err)
	}
	e.interceptor.Install(e.deps.Workspace)
	if err := e.watchers.EnableAll(); err != nil {
		log.WarnErr(log.CatWatch, "Some watchers could not be enabled", err)
	}
	log.Info(log.CatView, "Engine started", "watchers", e.watchers.Connected())
	return nil
}

func (e *Engine) closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tornDown
}

// Registry returns the view mode registry.
func (e *Engine) Registry() *viewmode.Registry { return e.registry }

// Tracker returns the active view tracker.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Styles returns the style broadcast engine.
func (e *Engine) Styles() *styles.Engine { return e.styles }

// Watchers returns the watcher set.
func (e *Engine) Watchers() *watchers.Set { return e.watchers }

// Hotkeys returns the hotkey scope stack.
func (e *Engine) Hotkeys() *hotkeys.Stack { return e.hotkeys }

// Autosave returns the autosave scheduler.
func (e *Engine) Autosave() *autosave.Scheduler { return e.autosave }

// Intercept exposes the pane-state hook for hosts that call it directly.
func (e *Engine) Intercept(pane host.PaneID, next host.PaneState) host.PaneState {
	return e.interceptor.Intercept(pane, next)
}

// ViewOpened attaches a canvas view that the host created in a pane.
func (e *Engine) ViewOpened(ctx context.Context, view host.CanvasView) (*tracker.Document, error) {
	if e.closed() {
		return nil, ErrTornDown
	}
	return e.tracker.Attach(ctx, view), nil
}

// ViewClosed forgets the canvas view in pane. The pane keeps its forced
// mode; see PaneDetached. During teardown views are released by Teardown
// itself.
func (e *Engine) ViewClosed(pane host.PaneID) {
	if e.tracker.TearingDown() {
		return
	}
	e.autosave.Cancel(pane)
	e.tracker.Detach(pane)
}

// PaneDetached forgets everything about pane.
func (e *Engine) PaneDetached(pane host.PaneID) {
	e.ViewClosed(pane)
	e.registry.Detach(pane)
}

// ActivePaneChanged moves the active pointer to the canvas view in pane, or
// clears it when pane holds no canvas view. origin is the pane that held
// focus before.
func (e *Engine) ActivePaneChanged(ctx context.Context, pane host.PaneID, origin tracker.Leaf) {
	if e.closed() {
		return
	}
	next, _ := e.tracker.Lookup(pane)
	e.tracker.Switch(ctx, next, origin)
}

// LayoutChanged recalibrates pointer offsets. Right after a switch only the
// active view is recalibrated; the re-layout belongs to the switch.
func (e *Engine) LayoutChanged() {
	if e.closed() {
		return
	}
	if e.tracker.RecentSwitch() {
		if d := e.tracker.Active(); d != nil {
			d.Calibrate()
		}
		return
	}
	for _, d := range e.tracker.Documents() {
		d.Calibrate()
	}
}

// WindowOpened broadcasts the last style snapshot to w.
func (e *Engine) WindowOpened(w host.Window) {
	if e.closed() {
		return
	}
	e.styles.WindowOpened(w)
}

// WindowClosed drops the window's style binding.
func (e *Engine) WindowClosed(id host.WindowID) {
	e.styles.WindowClosed(id)
}

// StyleChanged re-harvests and re-broadcasts styles.
func (e *Engine) StyleChanged(ctx context.Context) error {
	if e.closed() {
		return ErrTornDown
	}
	return e.styles.Refresh(ctx)
}

// Edited marks the view in pane dirty and re-arms its autosave timer.
// Returns false when pane holds no canvas view.
func (e *Engine) Edited(pane host.PaneID) bool {
	d, ok := e.tracker.Lookup(pane)
	if !ok {
		return false
	}
	d.MarkDirty()
	e.autosave.Touch(pane)
	return true
}

func (e *Engine) flush(pane host.PaneID) {
	d, ok := e.tracker.Lookup(pane)
	if !ok || e.tracker.TearingDown() || !d.IsDirty() {
		return
	}
	log.Debug(log.CatSave, "Autosave", "pane", pane, "path", d.FilePath())
	// Failures are published by Document.Save.
	_ = d.Save(e.baseCtx, false)
}

// SuppressCompetingSave reports whether a text-mode save of path should be
// held back because the file just moved to canvas mode in another pane.
func (e *Engine) SuppressCompetingSave(path string) bool {
	return e.tracker.RecentCrossModeSwitch(path)
}

// OpenAsText makes the next open of path show text regardless of metadata.
func (e *Engine) OpenAsText(path string) {
	e.registry.SetOneShot(path)
	log.Debug(log.CatMode, "Next open as text", "path", path)
}

// ToggleMode flips pane between text and canvas for path. A dirty canvas
// view is saved first; if that save fails the pane is left alone.
func (e *Engine) ToggleMode(ctx context.Context, pane host.PaneID, path string) (viewmode.Mode, error) {
	if e.closed() {
		return viewmode.ModeUnspecified, ErrTornDown
	}
	e.autosave.Suspend()
	defer e.autosave.Resume()

	target := viewmode.CanvasForced
	if d, ok := e.tracker.Lookup(pane); ok {
		target = viewmode.MarkdownForced
		if path == "" {
			path = d.FilePath()
		}
		if d.IsDirty() {
			if err := d.Save(ctx, true); err != nil {
				return viewmode.ModeUnspecified, err
			}
		}
	}
	if path == "" {
		return viewmode.ModeUnspecified, fmt.Errorf("toggling %s: no file", pane)
	}

	e.registry.Set(pane, target)
	if err := e.deps.Workspace.SetPaneState(ctx, pane, host.PaneState{Type: target.ViewType(), FilePath: path}); err != nil {
		return viewmode.ModeUnspecified, fmt.Errorf("toggling %s: %w", pane, err)
	}
	e.ctx.Notify(core.ModeChanged, core.Notification{Pane: pane, Path: path, Mode: target.ViewType()})
	log.Info(log.CatMode, "Mode toggled", "pane", pane, "path", path, "mode", target)
	return target, nil
}
