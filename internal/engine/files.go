package engine

import (
	"context"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/tracker"
	"github.com/zjrosen/panesync/internal/watcher"
)

// FileModified handles an external change to path. Pending delayed reloads
// are cancelled and clean views reload with force; dirty views keep their
// buffer. Changes arriving within the save-echo window of a view's own
// save are ignored. Returns the number of views reloaded.
func (e *Engine) FileModified(ctx context.Context, path string) int {
	if e.closed() {
		return 0
	}

	now := e.ctx.Clock.Now()
	var affected []*tracker.Document
	for _, d := range e.tracker.DocumentsFor(path) {
		if saved := d.LastSavedAt(); !saved.IsZero() && now.Sub(saved) < e.ctx.Config.Timing.SaveEcho {
			continue
		}
		affected = append(affected, d)
	}
	if len(affected) == 0 {
		return 0
	}

	e.tracker.CancelReloadsFor(path)
	reloaded := 0
	for _, d := range affected {
		if d.IsDirty() {
			log.Info(log.CatSave, "External change ignored for dirty view", "pane", d.PaneID(), "path", path)
			continue
		}
		if err := d.Reload(ctx, true); err != nil {
			log.WarnErr(log.CatSave, "Reload after external change failed", err, "pane", d.PaneID(), "path", path)
			continue
		}
		reloaded++
	}
	return reloaded
}

// FileRenamed carries per-path state from one path to another.
func (e *Engine) FileRenamed(ctx context.Context, from, to string) {
	if e.closed() {
		return
	}
	e.registry.Rename(from, to)
	e.tracker.Rename(from, to)
	if e.deps.Metadata != nil {
		e.deps.Metadata.Invalidate(ctx, from, to)
	}
	if e.journal != nil {
		if err := e.journal.Rename(ctx, from, to); err != nil {
			log.WarnErr(log.CatJournal, "Failed to rename journal entries", err, "from", from, "to", to)
		}
	}
	e.ctx.Notify(core.EmbedRefreshRequested, core.Notification{Path: to})
	log.Debug(log.CatFS, "File renamed", "from", from, "to", to)
}

// FileDeleted cancels the timers of views showing path.
func (e *Engine) FileDeleted(ctx context.Context, path string) {
	if e.closed() {
		return
	}
	e.tracker.CancelReloadsFor(path)
	for _, d := range e.tracker.DocumentsFor(path) {
		e.autosave.Cancel(d.PaneID())
	}
	if e.deps.Metadata != nil {
		e.deps.Metadata.Invalidate(ctx, path)
	}
	if e.journal != nil {
		if err := e.journal.Forget(ctx, path); err != nil {
			log.WarnErr(log.CatJournal, "Failed to forget journal entries", err, "path", path)
		}
	}
	e.ctx.Notify(core.EmbedRefreshRequested, core.Notification{Path: path})
	log.Debug(log.CatFS, "File deleted", "path", path)
}

// HandleFileEvent routes a filesystem event to the matching callback.
func (e *Engine) HandleFileEvent(ctx context.Context, ev watcher.Event) {
	switch ev.Op {
	case watcher.Modified:
		e.FileModified(ctx, ev.Path)
	case watcher.Created:
		if e.deps.Metadata != nil {
			e.deps.Metadata.Invalidate(ctx, ev.Path)
		}
	case watcher.Renamed:
		e.FileRenamed(ctx, ev.From, ev.Path)
	case watcher.Deleted:
		e.FileDeleted(ctx, ev.Path)
	}
}

// WatchFiles feeds events into the engine until events closes or ctx is
// done.
func (e *Engine) WatchFiles(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleFileEvent(ctx, ev)
		}
	}
}
