package viewmode

import (
	"sync"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// CanvasDefaultFunc reports whether the document at path carries the
// canvas-is-default metadata marker.
type CanvasDefaultFunc func(path string) bool

// Registry resolves the effective mode for a pane/path pair.
type Registry struct {
	ctx      *core.Context
	modes    *PaneModes
	oneShot  *OneShot
	isCanvas CanvasDefaultFunc

	mu      sync.Mutex
	derived map[host.PaneID]struct{}
}

// NewRegistry creates a registry consulting isCanvas for default modes.
func NewRegistry(ctx *core.Context, isCanvas CanvasDefaultFunc) *Registry {
	if isCanvas == nil {
		isCanvas = func(string) bool { return false }
	}
	return &Registry{
		ctx:      ctx,
		modes:    NewPaneModes(),
		oneShot:  &OneShot{},
		isCanvas: isCanvas,
		derived:  make(map[host.PaneID]struct{}),
	}
}

// RequestMode returns the effective mode for pane showing path.
//
// A pending one-shot override for path wins and is consumed. An explicit
// desired mode is recorded for the pane. Otherwise the pane's forced entry
// applies, and failing that the document metadata.
func (r *Registry) RequestMode(pane host.PaneID, path string, desired Mode) Mode {
	if r.oneShot.Consume(path) {
		log.Debug(log.CatMode, "One-shot text override consumed", "pane", pane, "path", path)
		r.clearDerived(pane)
		return MarkdownForced
	}

	if desired != ModeUnspecified {
		r.modes.Set(pane, desired)
		r.clearDerived(pane)
		log.Debug(log.CatMode, "Pane mode forced", "pane", pane, "mode", desired)
		return desired
	}

	if forced, ok := r.modes.Get(pane); ok {
		return forced
	}

	r.mu.Lock()
	r.derived[pane] = struct{}{}
	r.mu.Unlock()

	if r.isCanvas(path) {
		return CanvasForced
	}
	return MarkdownForced
}

// IsCanvasDocument reports whether path is a canvas document.
func (r *Registry) IsCanvasDocument(path string) bool {
	return path != "" && r.isCanvas(path)
}

// Set forces pane to mode without resolving anything.
func (r *Registry) Set(pane host.PaneID, mode Mode) {
	r.modes.Set(pane, mode)
	r.clearDerived(pane)
}

// State returns the registry's state for pane.
func (r *Registry) State(pane host.PaneID) State {
	if m, ok := r.modes.Get(pane); ok {
		if m == CanvasForced {
			return StateCanvasForced
		}
		return StateMarkdownForced
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.derived[pane]; ok {
		return StateDefaultFromMetadata
	}
	return StateUnknown
}

// Detach resets pane to StateUnknown.
func (r *Registry) Detach(pane host.PaneID) {
	if r.modes.Detach(pane) {
		log.Debug(log.CatMode, "Forced mode dropped on detach", "pane", pane)
	}
	r.clearDerived(pane)
}

// SetOneShot arms the one-shot text override for path.
func (r *Registry) SetOneShot(path string) {
	r.oneShot.Arm(path)
}

// Forced returns the mode pinned on pane, if any.
func (r *Registry) Forced(pane host.PaneID) (Mode, bool) {
	return r.modes.Get(pane)
}

// PendingOneShot returns the armed one-shot path.
func (r *Registry) PendingOneShot() (string, bool) {
	return r.oneShot.Pending()
}

// Rename carries a pending one-shot override across a file rename.
func (r *Registry) Rename(from, to string) {
	r.oneShot.Rename(from, to)
}

// ForcedCount returns the number of panes with a forced entry.
func (r *Registry) ForcedCount() int {
	return r.modes.Len()
}

func (r *Registry) clearDerived(pane host.PaneID) {
	r.mu.Lock()
	delete(r.derived, pane)
	r.mu.Unlock()
}
