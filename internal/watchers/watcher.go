// Package watchers turns presentation-layer UI events into save, re-theme
// and calibration triggers. Each watcher observes one event kind and can be
// enabled and disabled independently.
package watchers

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// Watcher names.
const (
	NameTheme    = "theme"
	NameModal    = "modal"
	NameDrawer   = "drawer"
	NameFileList = "file-list"
)

// Views is what watchers need from the active view tracker. Saves made
// through the returned views are serialized per view.
type Views interface {
	// ActiveView returns nil when no canvas view is active.
	ActiveView() host.CanvasView
	OpenViews() []host.CanvasView
	TearingDown() bool
}

// Watcher is one UI-event observer.
type Watcher interface {
	Name() string
	Enable() error
	Disable()
	Enabled() bool
}

// SetupError reports that a watcher could not subscribe. The watcher stays
// disabled.
type SetupError struct {
	Watcher string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("watcher %s: setup failed: %v", e.Watcher, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// observer holds the subscription bookkeeping shared by every watcher.
type observer struct {
	name   string
	kind   host.EventKind
	ctx    *core.Context
	events host.UIEvents
	handle func(host.UIEvent)

	mu  sync.Mutex
	sub host.Subscription
}

func (o *observer) Name() string { return o.name }

func (o *observer) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sub != nil
}

func (o *observer) enable() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sub != nil {
		return nil
	}
	sub, err := o.events.Observe(o.kind, o.handle)
	if err != nil {
		serr := &SetupError{Watcher: o.name, Err: err}
		log.WarnErr(log.CatWatch, "Watcher disabled", err, "watcher", o.name)
		o.ctx.Notify(core.ObserverDisabled, core.Notification{Source: o.name, Err: serr})
		return serr
	}
	o.sub = sub
	log.Debug(log.CatWatch, "Watcher enabled", "watcher", o.name)
	return nil
}

func (o *observer) disable() {
	o.mu.Lock()
	sub := o.sub
	o.sub = nil
	o.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
		log.Debug(log.CatWatch, "Watcher disabled", "watcher", o.name)
	}
}

// saveActive saves the active view when it is dirty, healthy and the
// tracker is not tearing down. Reports whether a save was attempted.
func saveActive(ctx context.Context, views Views, source string) bool {
	if views.TearingDown() {
		return false
	}
	active := views.ActiveView()
	if active == nil || !active.IsDirty() || active.LiveState().HasError {
		return false
	}
	if err := active.Save(ctx, false); err != nil {
		log.WarnErr(log.CatWatch, "Triggered save failed", err, "source", source, "pane", active.PaneID())
	} else {
		log.Debug(log.CatWatch, "Triggered save", "source", source, "pane", active.PaneID())
	}
	return true
}
