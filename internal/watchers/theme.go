package watchers

import (
	"sync"
	"time"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// Theme re-themes open canvas views after the host toggles light/dark.
// The re-theme runs once the host theme has settled.
type Theme struct {
	observer
	views  Views
	settle time.Duration

	mu      sync.Mutex
	current host.Theme
	pending clock.Timer
}

// NewTheme creates a disabled theme watcher.
func NewTheme(ctx *core.Context, events host.UIEvents, views Views) *Theme {
	t := &Theme{
		views:  views,
		settle: ctx.Config.Timing.ThemeSettle,
	}
	t.observer = observer{name: NameTheme, kind: host.EventThemeChanged, ctx: ctx, events: events, handle: t.onEvent}
	return t
}

// Enable subscribes to theme changes.
func (t *Theme) Enable() error { return t.enable() }

// Disable unsubscribes and drops any pending re-theme.
func (t *Theme) Disable() {
	t.disable()
	t.mu.Lock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.mu.Unlock()
}

func (t *Theme) onEvent(ev host.UIEvent) {
	if ev.Theme == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.Theme == t.current {
		return
	}
	t.current = ev.Theme
	if t.pending != nil {
		t.pending.Stop()
	}
	theme := ev.Theme
	t.pending = t.ctx.Clock.AfterFunc(t.settle, func() { t.apply(theme) })
}

func (t *Theme) apply(theme host.Theme) {
	t.mu.Lock()
	if t.current != theme {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.mu.Unlock()

	if t.views.TearingDown() {
		return
	}
	for _, v := range t.views.OpenViews() {
		live := v.LiveState()
		if !live.TracksHostTheme || live.Theme == theme {
			continue
		}
		bg, err := v.ApplyTheme(theme)
		if err != nil {
			log.WarnErr(log.CatWatch, "Re-theme failed", err, "pane", v.PaneID())
			continue
		}
		t.ctx.Notify(core.BackgroundChanged, core.Notification{Pane: v.PaneID(), Path: v.FilePath(), Color: bg})
	}
	log.Debug(log.CatWatch, "Views re-themed", "theme", theme)
}

// Current returns the last observed host theme.
func (t *Theme) Current() host.Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
