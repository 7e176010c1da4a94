package viewmode

import (
	"sync"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// ShutdownProbe reports whether the engine is tearing down.
type ShutdownProbe interface {
	TearingDown() bool
}

// Interceptor rewrites pane-state changes so documents open in the mode
// the registry resolves.
type Interceptor struct {
	ctx      *core.Context
	registry *Registry
	probe    ShutdownProbe

	mu         sync.Mutex
	unregister func()
}

// NewInterceptor creates an interceptor backed by registry.
func NewInterceptor(ctx *core.Context, registry *Registry, probe ShutdownProbe) *Interceptor {
	return &Interceptor{ctx: ctx, registry: registry, probe: probe}
}

// Install registers the interceptor as the workspace's pane-state hook,
// replacing a previous installation.
func (i *Interceptor) Install(ws host.Workspace) {
	i.Uninstall()
	unregister := ws.OnBeforePaneStateChange(i.Intercept)
	i.mu.Lock()
	i.unregister = unregister
	i.mu.Unlock()
}

// Uninstall removes the hook. Safe to call when not installed.
func (i *Interceptor) Uninstall() {
	i.mu.Lock()
	unregister := i.unregister
	i.unregister = nil
	i.mu.Unlock()
	if unregister != nil {
		unregister()
	}
}

// Intercept returns next, possibly with its Type rewritten. It is called
// synchronously before the host applies the change.
func (i *Interceptor) Intercept(pane host.PaneID, next host.PaneState) host.PaneState {
	if i.probe != nil && i.probe.TearingDown() {
		return next
	}
	if next.FilePath == "" {
		return next
	}

	switch next.Type {
	case host.ViewTypeText:
		if !i.registry.IsCanvasDocument(next.FilePath) {
			return next
		}
		if i.registry.RequestMode(pane, next.FilePath, ModeUnspecified) == CanvasForced {
			return i.rewrite(pane, next, host.ViewTypeCanvas)
		}
	case host.ViewTypeCanvas:
		// Explicit canvas requests are only demoted by a pending one-shot
		// for the path or a markdown pin on the pane.
		pending, ok := i.registry.PendingOneShot()
		oneShot := ok && pending == next.FilePath
		forced, pinned := i.registry.Forced(pane)
		if !oneShot && (!pinned || forced != MarkdownForced) {
			return next
		}
		if i.registry.RequestMode(pane, next.FilePath, ModeUnspecified) == MarkdownForced {
			return i.rewrite(pane, next, host.ViewTypeText)
		}
	}
	return next
}

func (i *Interceptor) rewrite(pane host.PaneID, next host.PaneState, to host.ViewType) host.PaneState {
	log.Debug(log.CatMode, "Pane state rewritten", "pane", pane, "path", next.FilePath, "from", next.Type, "to", to)
	next.Type = to
	i.ctx.Notify(core.ModeChanged, core.Notification{Pane: pane, Path: next.FilePath, Mode: to})
	return next
}
