package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// SaveError reports a failed save. The document stays dirty.
type SaveError struct {
	Pane host.PaneID
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s (pane %s): %v", e.Path, e.Pane, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Document wraps a canvas view attached to a pane. It implements
// host.CanvasView; saves through it are serialized and keep the dirty flag
// and saved revision in step with confirmed writes.
type Document struct {
	view    host.CanvasView
	ctx     *core.Context
	onSaved func(ctx context.Context, d *Document, revision int64)

	saveMu sync.Mutex

	mu          sync.Mutex
	edits       uint64
	dirty       bool
	revision    int64
	lastSavedAt time.Time
	saving      bool
}

var _ host.CanvasView = (*Document)(nil)

func newDocument(ctx *core.Context, view host.CanvasView, revision int64) *Document {
	return &Document{view: view, ctx: ctx, revision: revision}
}

// View returns the wrapped canvas view.
func (d *Document) View() host.CanvasView { return d.view }

func (d *Document) PaneID() host.PaneID     { return d.view.PaneID() }
func (d *Document) WindowID() host.WindowID { return d.view.WindowID() }
func (d *Document) FilePath() string        { return d.view.FilePath() }

// MarkDirty records an edit.
func (d *Document) MarkDirty() {
	d.mu.Lock()
	d.edits++
	d.dirty = true
	d.mu.Unlock()
}

// IsDirty reports unsaved edits known to either the document or the view.
func (d *Document) IsDirty() bool {
	d.mu.Lock()
	dirty := d.dirty
	d.mu.Unlock()
	return dirty || d.view.IsDirty()
}

// Revision returns the number of confirmed saves, seeded from the journal.
func (d *Document) Revision() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revision
}

// LastSavedAt returns when the last confirmed save completed.
func (d *Document) LastSavedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSavedAt
}

// Saving reports whether a save is in flight.
func (d *Document) Saving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saving
}

// Save writes the view. A save waits for the in-flight save of the same
// document. Dirty is cleared only when no edit arrived while saving.
func (d *Document) Save(ctx context.Context, flushLinks bool) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	pane, path := d.PaneID(), d.FilePath()
	ctx, span := d.ctx.StartSpan(ctx, "tracker.save", "pane", string(pane), "path", path)
	defer span.End()

	d.mu.Lock()
	d.saving = true
	edits := d.edits
	d.mu.Unlock()

	err := d.view.Save(ctx, flushLinks)

	d.mu.Lock()
	d.saving = false
	if err != nil {
		d.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		serr := &SaveError{Pane: pane, Path: path, Err: err}
		log.WarnErr(log.CatSave, "Save failed, buffer kept dirty", err, "pane", pane, "path", path)
		d.ctx.Notify(core.SaveFailed, core.Notification{Pane: pane, Path: path, Err: serr})
		return serr
	}
	if d.edits == edits {
		d.dirty = false
	}
	d.revision++
	rev := d.revision
	d.lastSavedAt = d.ctx.Clock.Now()
	d.mu.Unlock()

	log.Debug(log.CatSave, "Saved", "pane", pane, "path", path, "revision", rev, "flushLinks", flushLinks)
	d.ctx.Notify(core.SaveCompleted, core.Notification{Pane: pane, Path: path, Revision: rev})
	if d.onSaved != nil {
		d.onSaved(ctx, d, rev)
	}
	return nil
}

func (d *Document) Reload(ctx context.Context, force bool) error {
	if err := d.view.Reload(ctx, force); err != nil {
		return fmt.Errorf("reload %s: %w", d.FilePath(), err)
	}
	if force {
		d.mu.Lock()
		d.dirty = false
		d.mu.Unlock()
	}
	return nil
}

func (d *Document) LiveState() host.LiveState { return d.view.LiveState() }

func (d *Document) ApplyTheme(theme host.Theme) (string, error) {
	return d.view.ApplyTheme(theme)
}

func (d *Document) Calibrate() { d.view.Calibrate() }
