package watchers

import (
	"context"
	"sync"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// Drawer reacts to side drawers on compact devices: hiding a drawer shifts
// the canvas, so pointer offsets are recalibrated; revealing one from hidden
// saves a dirty view before it is covered.
type Drawer struct {
	observer
	views   Views
	baseCtx context.Context

	mu     sync.Mutex
	hidden map[string]bool
}

// NewDrawer creates a disabled drawer watcher.
func NewDrawer(baseCtx context.Context, ctx *core.Context, events host.UIEvents, views Views) *Drawer {
	d := &Drawer{views: views, baseCtx: baseCtx, hidden: make(map[string]bool)}
	d.observer = observer{name: NameDrawer, kind: host.EventDrawerToggled, ctx: ctx, events: events, handle: d.onEvent}
	return d
}

// Enable subscribes to drawer toggles.
func (d *Drawer) Enable() error { return d.enable() }

// Disable unsubscribes and forgets drawer states.
func (d *Drawer) Disable() {
	d.disable()
	d.mu.Lock()
	clear(d.hidden)
	d.mu.Unlock()
}

func (d *Drawer) onEvent(ev host.UIEvent) {
	d.mu.Lock()
	wasHidden := d.hidden[ev.Drawer]
	d.hidden[ev.Drawer] = ev.Hidden
	d.mu.Unlock()

	switch {
	case ev.Hidden && !wasHidden:
		if d.views.TearingDown() {
			return
		}
		if active := d.views.ActiveView(); active != nil {
			active.Calibrate()
			log.Debug(log.CatWatch, "Recalibrated after drawer hid", "drawer", ev.Drawer, "pane", active.PaneID())
		}
	case !ev.Hidden && wasHidden:
		saveActive(d.baseCtx, d.views, NameDrawer)
	}
}
