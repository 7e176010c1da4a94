package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/panesync/internal/hotkeys"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/keys"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/tracker"
)

// bindings returns the overrides pushed while d is active.
func (e *Engine) bindings(d *tracker.Document) ([]hotkeys.Override, func() bool) {
	pane := d.PaneID()
	overrides := []hotkeys.Override{
		{Binding: keys.Canvas.ToggleMode, Run: func() bool {
			if _, err := e.ToggleMode(e.baseCtx, pane, d.FilePath()); err != nil {
				log.WarnErr(log.CatHotkey, "Toggle failed", err, "pane", pane)
			}
			return true
		}},
		{Binding: keys.Canvas.ForceReload, Run: func() bool {
			e.tracker.CancelReloadsFor(d.FilePath())
			if err := d.Reload(e.baseCtx, true); err != nil {
				log.WarnErr(log.CatHotkey, "Reload failed", err, "pane", pane)
			}
			return true
		}},
		{Binding: keys.Canvas.FlushLinks, Run: func() bool {
			_ = d.Save(e.baseCtx, true)
			return true
		}},
	}
	save := func() bool {
		e.autosave.Cancel(pane)
		_ = d.Save(e.baseCtx, false)
		return true
	}
	return overrides, save
}

// Teardown shuts the engine down: every canvas view is demoted to text,
// the watchers are disconnected, every timer is cleared, the style nodes
// are removed and the hotkey scope is popped, in that order. Later calls
// are no-ops.
func (e *Engine) Teardown(ctx context.Context) error {
	e.mu.Lock()
	if e.tornDown {
		e.mu.Unlock()
		return nil
	}
	e.tornDown = true
	e.mu.Unlock()

	ctx, span := e.ctx.StartSpan(ctx, "engine.teardown")
	defer span.End()

	e.tracker.BeginTeardown()
	docs := e.tracker.Documents()

	var errs []error
	for _, d := range docs {
		state := host.PaneState{Type: host.ViewTypeText, FilePath: d.FilePath()}
		err := e.deps.Workspace.SetPaneState(ctx, d.PaneID(), state)
		if err != nil && !errors.Is(err, host.ErrPaneNotFound) {
			errs = append(errs, fmt.Errorf("demoting %s: %w", d.PaneID(), err))
		}
	}

	e.watchers.DisableAll()

	e.tracker.ClearTimers()
	e.autosave.Stop()

	e.styles.Teardown()

	e.hotkeys.Pop()

	e.interceptor.Uninstall()
	for _, d := range docs {
		e.tracker.Detach(d.PaneID())
	}

	log.Info(log.CatView, "Engine torn down", "demoted", len(docs))
	return errors.Join(errs...)
}
