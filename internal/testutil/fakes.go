package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/zjrosen/panesync/internal/host"
)

// Backgrounds returned by View.ApplyTheme.
const (
	LightBackground = "#ffffff"
	DarkBackground  = "#1e1e1e"
)

// BackgroundFor returns the background a fake view adopts for theme.
func BackgroundFor(theme host.Theme) string {
	if theme == host.ThemeDark {
		return DarkBackground
	}
	return LightBackground
}

// SaveCall records one View.Save invocation.
type SaveCall struct {
	FlushLinks bool
	Err        error
}

// View is an in-memory host.CanvasView.
type View struct {
	mu        sync.Mutex
	pane      host.PaneID
	window    host.WindowID
	path      string
	dirty     bool
	live      host.LiveState
	saveErr   error
	reloadErr error
	themeErr  error
	gate      chan struct{}

	saves        []SaveCall
	reloads      []bool
	themes       []host.Theme
	calibrations int
	inFlight     int
	maxInFlight  int
}

// NewView creates a clean view tracking the host theme.
func NewView(pane host.PaneID, window host.WindowID, path string) *View {
	return &View{
		pane:   pane,
		window: window,
		path:   path,
		live: host.LiveState{
			Theme:           host.ThemeLight,
			Background:      LightBackground,
			TracksHostTheme: true,
		},
	}
}

func (v *View) PaneID() host.PaneID     { return v.pane }
func (v *View) WindowID() host.WindowID { return v.window }

func (v *View) FilePath() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.path
}

// SetFilePath simulates a rename of the backing file.
func (v *View) SetFilePath(path string) {
	v.mu.Lock()
	v.path = path
	v.mu.Unlock()
}

func (v *View) IsDirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty
}

// Edit marks the buffer dirty.
func (v *View) Edit() {
	v.mu.Lock()
	v.dirty = true
	v.mu.Unlock()
}

// SetSaveError makes subsequent saves fail with err (nil to succeed).
func (v *View) SetSaveError(err error) {
	v.mu.Lock()
	v.saveErr = err
	v.mu.Unlock()
}

// SetReloadError makes subsequent reloads fail with err.
func (v *View) SetReloadError(err error) {
	v.mu.Lock()
	v.reloadErr = err
	v.mu.Unlock()
}

// SetThemeError makes ApplyTheme fail with err.
func (v *View) SetThemeError(err error) {
	v.mu.Lock()
	v.themeErr = err
	v.mu.Unlock()
}

// SetLiveState replaces the reported live state.
func (v *View) SetLiveState(s host.LiveState) {
	v.mu.Lock()
	v.live = s
	v.mu.Unlock()
}

// BlockSaves makes every Save wait until the returned release is called.
func (v *View) BlockSaves() (release func()) {
	gate := make(chan struct{})
	v.mu.Lock()
	v.gate = gate
	v.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(gate)
			v.mu.Lock()
			if v.gate == gate {
				v.gate = nil
			}
			v.mu.Unlock()
		})
	}
}

func (v *View) Save(ctx context.Context, flushLinks bool) error {
	v.mu.Lock()
	v.inFlight++
	v.maxInFlight = max(v.maxInFlight, v.inFlight)
	gate := v.gate
	v.mu.Unlock()

	var ctxErr error
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight--
	err := ctxErr
	if err == nil {
		err = v.saveErr
	}
	v.saves = append(v.saves, SaveCall{FlushLinks: flushLinks, Err: err})
	if err == nil {
		v.dirty = false
	}
	return err
}

func (v *View) Reload(_ context.Context, force bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads = append(v.reloads, force)
	if v.reloadErr != nil {
		return v.reloadErr
	}
	if force {
		v.dirty = false
	}
	return nil
}

func (v *View) LiveState() host.LiveState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.live
}

func (v *View) ApplyTheme(theme host.Theme) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.themes = append(v.themes, theme)
	if v.themeErr != nil {
		return "", v.themeErr
	}
	v.live.Theme = theme
	v.live.Background = BackgroundFor(theme)
	return v.live.Background, nil
}

func (v *View) Calibrate() {
	v.mu.Lock()
	v.calibrations++
	v.mu.Unlock()
}

// Saves returns every recorded save.
func (v *View) Saves() []SaveCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.saves)
}

// SaveCount returns the number of save attempts.
func (v *View) SaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.saves)
}

// Reloads returns the force flag of every reload.
func (v *View) Reloads() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.reloads)
}

// Themes returns every theme applied.
func (v *View) Themes() []host.Theme {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.themes)
}

// Calibrations returns the number of Calibrate calls.
func (v *View) Calibrations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calibrations
}

// MaxConcurrentSaves returns the highest number of overlapping saves seen.
func (v *View) MaxConcurrentSaves() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxInFlight
}

// ErrRegister is returned by Chain.RegisterFront when a failure is armed.
var ErrRegister = errors.New("hotkey chain rejected handler")

type chainEntry struct {
	id      host.HandlerID
	handler host.KeyHandler
}

// Chain is an in-memory host.HotkeyChain.
type Chain struct {
	mu           sync.Mutex
	next         host.HandlerID
	entries      []chainEntry
	unregistered []host.HandlerID
	calls        int
	failOn       int
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// FailOn makes the n-th RegisterFront call from now fail (1-based).
func (c *Chain) FailOn(n int) {
	c.mu.Lock()
	c.failOn = c.calls + n
	c.mu.Unlock()
}

func (c *Chain) RegisterFront(h host.KeyHandler) (host.HandlerID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failOn > 0 && c.calls == c.failOn {
		return 0, fmt.Errorf("%w: %s", ErrRegister, h.Description)
	}
	c.next++
	c.entries = slices.Insert(c.entries, 0, chainEntry{id: c.next, handler: h})
	return c.next, nil
}

func (c *Chain) Unregister(id host.HandlerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unregistered = append(c.unregistered, id)
	c.entries = slices.DeleteFunc(c.entries, func(e chainEntry) bool { return e.id == id })
}

// Len returns the number of registered handlers.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Handlers returns the registered handlers, front first.
func (c *Chain) Handlers() []host.KeyHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]host.KeyHandler, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.handler
	}
	return out
}

// IDs returns the registered handler IDs, front first.
func (c *Chain) IDs() []host.HandlerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]host.HandlerID, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.id
	}
	return out
}

// Unregistered returns every unregistered ID in call order.
func (c *Chain) Unregistered() []host.HandlerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unregistered)
}

// Dispatch runs the front-most handler bound to key. Reports whether a
// handler consumed it.
func (c *Chain) Dispatch(key string) bool {
	for _, h := range c.Handlers() {
		if slices.Contains(h.Keys, key) && h.Run != nil && h.Run() {
			return true
		}
	}
	return false
}
