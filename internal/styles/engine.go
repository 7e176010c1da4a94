// Package styles harvests the host's theme variables from the primary
// window and broadcasts them as scoped style blocks into every open window,
// so canvas views look the same whichever window hosts them.
package styles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// Style node IDs and selectors installed into each window.
const (
	LightNodeID   = "panesync-canvas-light"
	DarkNodeID    = "panesync-canvas-dark"
	LightSelector = ".panesync-canvas.theme-light"
	DarkSelector  = ".panesync-canvas.theme-dark"
)

var (
	// ErrHarvest wraps every harvest failure.
	ErrHarvest = errors.New("style harvest failed")
	// ErrNoPrimaryWindow is returned when the workspace has no windows.
	ErrNoPrimaryWindow = errors.New("no primary window")
	// ErrNoVariables is returned when no allow-listed variable resolved.
	ErrNoVariables = errors.New("no variables resolved")
)

// Snapshot is the result of one harvest.
type Snapshot struct {
	Light       string
	Dark        string
	FontUnit    float64
	HarvestedAt time.Time
}

// IsZero reports whether nothing has been harvested yet.
func (s Snapshot) IsZero() bool {
	return s.Light == "" && s.Dark == ""
}

func (s Snapshot) css() string {
	return s.Light + s.Dark
}

// Engine owns the current snapshot and the per-window style nodes.
type Engine struct {
	ctx       *core.Context
	workspace host.Workspace
	variables []string
	group     singleflight.Group

	mu       sync.Mutex
	snapshot Snapshot
	bindings map[host.WindowID]host.Window
	harvests int
	lastDiff string
}

// New creates an engine reading the configured allow-list, or
// DefaultVariables when none is configured.
func New(ctx *core.Context, ws host.Workspace) *Engine {
	vars := ctx.Config.Styles.Variables
	if len(vars) == 0 {
		vars = DefaultVariables
	}
	return &Engine{
		ctx:       ctx,
		workspace: ws,
		variables: vars,
		bindings:  make(map[host.WindowID]host.Window),
	}
}

// Harvest reads the allow-listed variables under both themes from a render
// surface cloned from the primary window. Concurrent calls share one
// in-flight harvest. On failure the previous snapshot is kept.
func (e *Engine) Harvest(ctx context.Context) (Snapshot, error) {
	v, err, shared := e.group.Do("harvest", func() (any, error) {
		return e.harvest(ctx)
	})
	if shared {
		log.Debug(log.CatStyle, "Joined in-flight harvest")
	}
	if err != nil {
		return e.Snapshot(), err
	}
	return v.(Snapshot), nil
}

func (e *Engine) harvest(ctx context.Context) (Snapshot, error) {
	_, span := e.ctx.StartSpan(ctx, "styles.harvest")
	defer span.End()

	primary := e.workspace.PrimaryWindow()
	if primary == nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrHarvest, ErrNoPrimaryWindow)
	}
	surface, err := primary.NewRenderSurface()
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, fmt.Errorf("%w: render surface: %w", ErrHarvest, err)
	}
	defer surface.Close()

	surface.SetTheme(host.ThemeLight)
	light := e.read(surface)
	fontUnit := parseFontUnit(surface.Computed("font-size"))
	surface.SetTheme(host.ThemeDark)
	dark := e.read(surface)

	if len(light) == 0 && len(dark) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrHarvest, ErrNoVariables)
	}

	snap := Snapshot{
		Light:       composeBlock(LightSelector, light, fontUnit),
		Dark:        composeBlock(DarkSelector, dark, fontUnit),
		FontUnit:    fontUnit,
		HarvestedAt: e.ctx.Clock.Now(),
	}

	e.mu.Lock()
	prev := e.snapshot
	e.snapshot = snap
	e.harvests++
	e.mu.Unlock()

	e.logChange(prev, snap)
	log.Debug(log.CatStyle, "Harvested styles", "light", len(light), "dark", len(dark), "fontUnit", fontUnit)
	return snap, nil
}

func (e *Engine) read(surface host.RenderSurface) []declaration {
	decls := make([]declaration, 0, len(e.variables))
	for _, name := range e.variables {
		value := surface.Computed(name)
		if strings.TrimSpace(value) == "" {
			continue
		}
		decls = append(decls, declaration{name: name, value: normalizeColor(value)})
	}
	return decls
}

func (e *Engine) logChange(prev, next Snapshot) {
	if prev.IsZero() || prev.css() == next.css() {
		return
	}
	if !e.ctx.Flags.Enabled(flags.FlagStyleDiffLog) {
		return
	}
	dmp := diffmatchpatch.New()
	patch := dmp.PatchToText(dmp.PatchMake(prev.css(), next.css()))

	e.mu.Lock()
	e.lastDiff = patch
	e.mu.Unlock()
	log.Debug(log.CatStyle, "Style snapshot changed", "patch", patch)
}

// LastDiff returns the patch text of the most recent logged change.
func (e *Engine) LastDiff() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastDiff
}

// Snapshot returns the last successful harvest.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Harvests returns the number of completed harvests.
func (e *Engine) Harvests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.harvests
}

// Broadcast writes the current snapshot into every open window. Returns
// false when there is nothing to broadcast.
func (e *Engine) Broadcast() bool {
	snap := e.Snapshot()
	if snap.IsZero() {
		return false
	}
	for _, w := range e.workspace.Windows() {
		e.apply(w, snap)
	}
	return true
}

// Refresh harvests and, on success, broadcasts. Called when the host's
// styles change.
func (e *Engine) Refresh(ctx context.Context) error {
	if _, err := e.Harvest(ctx); err != nil {
		log.WarnErr(log.CatStyle, "Style refresh failed, keeping previous snapshot", err)
		return err
	}
	e.Broadcast()
	return nil
}

// WindowOpened writes the last snapshot into w only.
func (e *Engine) WindowOpened(w host.Window) bool {
	snap := e.Snapshot()
	if snap.IsZero() {
		e.mu.Lock()
		e.bindings[w.ID()] = w
		e.mu.Unlock()
		return false
	}
	e.apply(w, snap)
	return true
}

// WindowClosed forgets the window's nodes.
func (e *Engine) WindowClosed(id host.WindowID) {
	e.mu.Lock()
	delete(e.bindings, id)
	e.mu.Unlock()
}

// Bound reports whether the engine tracks style nodes for id.
func (e *Engine) Bound(id host.WindowID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.bindings[id]
	return ok
}

// Teardown removes both nodes from every bound window.
func (e *Engine) Teardown() {
	e.mu.Lock()
	windows := make([]host.Window, 0, len(e.bindings))
	for _, w := range e.bindings {
		windows = append(windows, w)
	}
	clear(e.bindings)
	e.mu.Unlock()

	for _, w := range windows {
		for _, id := range []string{LightNodeID, DarkNodeID} {
			if err := w.RemoveStyleNode(id); err != nil {
				log.WarnErr(log.CatStyle, "Failed to remove style node", err, "window", w.ID(), "node", id)
			}
		}
	}
	log.Debug(log.CatStyle, "Style nodes removed", "windows", len(windows))
}

func (e *Engine) apply(w host.Window, snap Snapshot) {
	e.mu.Lock()
	e.bindings[w.ID()] = w
	e.mu.Unlock()

	if err := w.UpsertStyleNode(LightNodeID, snap.Light); err != nil {
		log.WarnErr(log.CatStyle, "Failed to write light block", err, "window", w.ID())
		return
	}
	if err := w.UpsertStyleNode(DarkNodeID, snap.Dark); err != nil {
		log.WarnErr(log.CatStyle, "Failed to write dark block", err, "window", w.ID())
	}
}
