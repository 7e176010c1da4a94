// Package tracker is the single source of truth for which canvas view is
// active. Switching views saves the view losing focus, schedules a reload
// of the view gaining it and moves the hotkey scope.
package tracker

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/hotkeys"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// Leaf describes the pane that held focus before a switch.
type Leaf struct {
	Pane     host.PaneID
	Type     host.ViewType
	FilePath string
}

// Scope is the hotkey scope moved on every switch.
type Scope interface {
	Push(owner host.PaneID, overrides []hotkeys.Override, save func() bool) error
	Pop()
}

// BindingsFunc returns the hotkey overrides and save action for d.
type BindingsFunc func(d *Document) (overrides []hotkeys.Override, save func() bool)

// Journal records confirmed saves and seeds revisions of new documents.
type Journal interface {
	RecordSave(ctx context.Context, pane host.PaneID, path string, revision int64, at time.Time) error
	LastRevision(ctx context.Context, path string) (int64, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithScope moves scope on every switch, pushing bind's overrides.
func WithScope(scope Scope, bind BindingsFunc) Option {
	return func(t *Tracker) {
		t.scope = scope
		t.bind = bind
	}
}

// WithJournal records saves in j.
func WithJournal(j Journal) Option {
	return func(t *Tracker) { t.journal = j }
}

type reload struct {
	timer clock.Timer
	seq   uint64
}

// Tracker holds the attached documents and the active pointer.
type Tracker struct {
	baseCtx context.Context
	ctx     *core.Context
	scope   Scope
	bind    BindingsFunc
	journal Journal

	mu          sync.Mutex
	docs        map[host.PaneID]*Document
	active      *Document
	reloads     map[host.PaneID]reload
	reloadSeq   uint64
	recentUntil time.Time
	crossMode   map[string]time.Time
	tearingDown bool
}

// New creates a tracker. Timer-driven reloads run under baseCtx.
func New(baseCtx context.Context, ctx *core.Context, opts ...Option) *Tracker {
	t := &Tracker{
		baseCtx:   baseCtx,
		ctx:       ctx,
		docs:      make(map[host.PaneID]*Document),
		reloads:   make(map[host.PaneID]reload),
		crossMode: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach wraps view in a Document keyed by its pane. Re-attaching the same
// view returns the existing document; a different view replaces it.
func (t *Tracker) Attach(ctx context.Context, view host.CanvasView) *Document {
	pane := view.PaneID()

	t.mu.Lock()
	if existing, ok := t.docs[pane]; ok && existing.view == view {
		t.mu.Unlock()
		return existing
	}
	t.mu.Unlock()

	if _, ok := t.Lookup(pane); ok {
		t.Detach(pane)
	}

	var revision int64
	if t.journal != nil {
		rev, err := t.journal.LastRevision(ctx, view.FilePath())
		if err != nil {
			log.WarnErr(log.CatJournal, "Failed to seed revision", err, "path", view.FilePath())
		}
		revision = rev
	}

	d := newDocument(t.ctx, view, revision)
	if t.journal != nil {
		d.onSaved = t.recordSave
	}

	t.mu.Lock()
	t.docs[pane] = d
	t.mu.Unlock()
	log.Debug(log.CatView, "Document attached", "pane", pane, "path", view.FilePath(), "revision", revision)
	return d
}

func (t *Tracker) recordSave(ctx context.Context, d *Document, revision int64) {
	if err := t.journal.RecordSave(ctx, d.PaneID(), d.FilePath(), revision, d.LastSavedAt()); err != nil {
		log.WarnErr(log.CatJournal, "Failed to record save", err, "pane", d.PaneID(), "path", d.FilePath())
	}
}

// Detach forgets the document in pane, cancelling its reload. Detaching the
// active document clears the pointer and pops the hotkey scope.
func (t *Tracker) Detach(pane host.PaneID) bool {
	t.mu.Lock()
	d, ok := t.docs[pane]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.docs, pane)
	t.cancelReloadLocked(pane)
	wasActive := t.active == d
	if wasActive {
		t.active = nil
	}
	t.mu.Unlock()

	if wasActive && t.scope != nil {
		t.scope.Pop()
	}
	log.Debug(log.CatView, "Document detached", "pane", pane, "active", wasActive)
	return true
}

// Lookup returns the document in pane.
func (t *Tracker) Lookup(pane host.PaneID) (*Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.docs[pane]
	return d, ok
}

// Documents returns every attached document ordered by pane.
func (t *Tracker) Documents() []*Document {
	t.mu.Lock()
	docs := make([]*Document, 0, len(t.docs))
	for _, d := range t.docs {
		docs = append(docs, d)
	}
	t.mu.Unlock()
	slices.SortFunc(docs, func(a, b *Document) int { return cmp.Compare(a.PaneID(), b.PaneID()) })
	return docs
}

// DocumentsFor returns the documents showing path.
func (t *Tracker) DocumentsFor(path string) []*Document {
	var out []*Document
	for _, d := range t.Documents() {
		if d.FilePath() == path {
			out = append(out, d)
		}
	}
	return out
}

// Active returns the active document or nil.
func (t *Tracker) Active() *Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// ActiveView returns the active document as a canvas view, or nil.
func (t *Tracker) ActiveView() host.CanvasView {
	if d := t.Active(); d != nil {
		return d
	}
	return nil
}

// OpenViews returns every attached document as a canvas view.
func (t *Tracker) OpenViews() []host.CanvasView {
	docs := t.Documents()
	out := make([]host.CanvasView, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

// Switch makes next the active document. next may be nil when focus moves
// to a non-canvas pane; origin describes the pane focus came from.
//
// A dirty previous document is saved (with link flushing) before the
// pointer moves, unless it is next or the tracker is tearing down. A failed
// save is reported and the switch continues.
func (t *Tracker) Switch(ctx context.Context, next *Document, origin Leaf) {
	ctx, span := t.ctx.StartSpan(ctx, "tracker.switch")
	defer span.End()

	t.mu.Lock()
	prev := t.active
	tearing := t.tearingDown
	t.mu.Unlock()

	if prev != nil && prev != next && !tearing && prev.IsDirty() {
		// Error already published by Document.Save.
		_ = prev.Save(ctx, true)
	}

	if prev != nil {
		if path := prev.FilePath(); path != "" {
			t.ctx.Notify(core.EmbedRefreshRequested, core.Notification{Pane: prev.PaneID(), Path: path})
		}
	}

	now := t.ctx.Clock.Now()
	t.mu.Lock()
	t.active = next
	if next != nil && next != prev {
		t.scheduleReloadLocked(next)
	}
	t.recentUntil = now.Add(t.ctx.Config.Timing.RecentSwitch)
	crossMode := next != nil &&
		origin.Type == host.ViewTypeText &&
		origin.Pane != next.PaneID() &&
		origin.FilePath != "" &&
		origin.FilePath == next.FilePath()
	if crossMode {
		t.crossMode[origin.FilePath] = now.Add(t.ctx.Config.Timing.CrossModeSwitch)
	}
	t.mu.Unlock()

	if t.scope != nil {
		t.scope.Pop()
		if next != nil && t.bind != nil {
			overrides, save := t.bind(next)
			if err := t.scope.Push(next.PaneID(), overrides, save); err != nil {
				log.WarnErr(log.CatHotkey, "Failed to push hotkey scope", err, "pane", next.PaneID())
			}
		}
	}

	var prevPane, nextPane host.PaneID
	if prev != nil {
		prevPane = prev.PaneID()
	}
	if next != nil {
		nextPane = next.PaneID()
	}
	log.Debug(log.CatView, "Active view switched", "from", prevPane, "to", nextPane, "crossMode", crossMode)
}

func (t *Tracker) scheduleReloadLocked(d *Document) {
	pane := d.PaneID()
	t.cancelReloadLocked(pane)
	t.reloadSeq++
	seq := t.reloadSeq
	timer := t.ctx.Clock.AfterFunc(t.ctx.Config.Timing.ReloadDelay, func() { t.fireReload(pane, seq) })
	t.reloads[pane] = reload{timer: timer, seq: seq}
}

func (t *Tracker) cancelReloadLocked(pane host.PaneID) bool {
	r, ok := t.reloads[pane]
	if !ok {
		return false
	}
	r.timer.Stop()
	delete(t.reloads, pane)
	return true
}

func (t *Tracker) fireReload(pane host.PaneID, seq uint64) {
	t.mu.Lock()
	r, ok := t.reloads[pane]
	if !ok || r.seq != seq {
		t.mu.Unlock()
		return
	}
	delete(t.reloads, pane)
	d, attached := t.docs[pane]
	tearing := t.tearingDown
	t.mu.Unlock()

	if !attached || tearing {
		return
	}
	if err := d.Reload(t.baseCtx, false); err != nil {
		log.WarnErr(log.CatSave, "Delayed reload failed", err, "pane", pane)
		return
	}
	log.Debug(log.CatSave, "Delayed reload", "pane", pane, "path", d.FilePath())
}

// ReloadPending reports whether pane has a delayed reload scheduled.
func (t *Tracker) ReloadPending(pane host.PaneID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.reloads[pane]
	return ok
}

// CancelReloadsFor cancels the pending reloads of documents showing path.
// Returns the number cancelled.
func (t *Tracker) CancelReloadsFor(path string) int {
	n := 0
	for _, d := range t.DocumentsFor(path) {
		t.mu.Lock()
		if t.cancelReloadLocked(d.PaneID()) {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// RecentSwitch reports whether a switch happened within the recent-switch
// window.
func (t *Tracker) RecentSwitch() bool {
	now := t.ctx.Clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Before(t.recentUntil)
}

// RecentCrossModeSwitch reports whether focus moved from a text pane to a
// canvas pane on path within the cross-mode window.
func (t *Tracker) RecentCrossModeSwitch(path string) bool {
	now := t.ctx.Clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.crossMode[path]
	if !ok {
		return false
	}
	if !now.Before(until) {
		delete(t.crossMode, path)
		return false
	}
	return true
}

// Rename moves cross-mode state from one path to another.
func (t *Tracker) Rename(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until, ok := t.crossMode[from]; ok {
		delete(t.crossMode, from)
		t.crossMode[to] = until
	}
}

// BeginTeardown stops saves on switch and reloads from firing.
func (t *Tracker) BeginTeardown() {
	t.mu.Lock()
	t.tearingDown = true
	t.mu.Unlock()
}

// TearingDown reports whether teardown has begun.
func (t *Tracker) TearingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tearingDown
}

// ClearTimers cancels every pending reload and drops suppression windows.
func (t *Tracker) ClearTimers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for pane := range t.reloads {
		t.cancelReloadLocked(pane)
	}
	clear(t.crossMode)
	t.recentUntil = time.Time{}
}
