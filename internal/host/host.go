// Package host defines the contracts panesync consumes from the application
// it runs inside: the canvas editing component, the pane/window system, the
// hotkey chain, the presentation layer's UI events and persistent storage.
//
// Nothing in this package has behaviour; implementations live in the host
// adapter (see internal/simhost for the terminal host).
package host

import (
	"context"
	"errors"
)

// PaneID identifies a pane (a visible slot showing one view at a time).
type PaneID string

// WindowID identifies a top-level window.
type WindowID string

// ViewType is the presentation type a pane shows.
type ViewType string

const (
	ViewTypeText   ViewType = "markdown"
	ViewTypeCanvas ViewType = "canvas"
	ViewTypeEmpty  ViewType = "empty"
)

// Theme is a light/dark theme class.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Other returns the opposite theme.
func (t Theme) Other() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ErrPaneNotFound is returned by Workspace methods for unknown panes.
var ErrPaneNotFound = errors.New("pane not found")

// PaneState is the state a pane is about to show.
type PaneState struct {
	Type     ViewType
	FilePath string
}

// LiveState is the canvas component's current appearance.
type LiveState struct {
	Theme           Theme
	Background      string
	TracksHostTheme bool
	HasError        bool
}

// CanvasView is one canvas-mode editor instance hosted in a pane.
type CanvasView interface {
	PaneID() PaneID
	WindowID() WindowID
	FilePath() string
	IsDirty() bool
	// Save persists the in-memory scene. flushLinks also rewrites
	// link/embed references in the backing file.
	Save(ctx context.Context, flushLinks bool) error
	// Reload re-reads the backing file. force discards unsaved edits.
	Reload(ctx context.Context, force bool) error
	LiveState() LiveState
	// ApplyTheme re-themes the view and returns the resulting background.
	ApplyTheme(theme Theme) (background string, err error)
	// Calibrate refreshes pointer offsets after the layout shifted.
	Calibrate()
}

// PaneStateHook rewrites a pane state before the host applies it.
type PaneStateHook func(pane PaneID, next PaneState) PaneState

// Workspace is the host pane/window system.
type Workspace interface {
	// OnBeforePaneStateChange installs the single synchronous interception
	// hook. The returned function removes it.
	OnBeforePaneStateChange(hook PaneStateHook) (unregister func())
	SetPaneState(ctx context.Context, pane PaneID, state PaneState) error
	HasPane(pane PaneID) bool
	Windows() []Window
	PrimaryWindow() Window
}

// Window is a top-level window that can hold scoped style nodes.
type Window interface {
	ID() WindowID
	UpsertStyleNode(id, css string) error
	RemoveStyleNode(id string) error
	StyleNodes() map[string]string
	// NewRenderSurface returns an invisible surface cloned from the window's
	// style declarations, used to read computed values.
	NewRenderSurface() (RenderSurface, error)
}

// RenderSurface is a throwaway element used to compute style values.
type RenderSurface interface {
	SetTheme(theme Theme)
	Computed(property string) string
	Close()
}

// HandlerID identifies a registered key handler.
type HandlerID int

// KeyHandler is a custom key handler.
type KeyHandler struct {
	Keys        []string
	Description string
	// Run handles the key. Returning true consumes the event.
	Run func() bool
}

// HotkeyChain is the host's key handler chain.
type HotkeyChain interface {
	// RegisterFront installs h ahead of every existing handler.
	RegisterFront(h KeyHandler) (HandlerID, error)
	Unregister(id HandlerID)
}

// Metadata is the document metadata consulted for default-mode derivation.
type Metadata struct {
	CanvasDefault bool
	Tags          []string
}

// Storage is persistent file I/O.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Rename(ctx context.Context, from, to string) error
	Metadata(ctx context.Context, path string) (Metadata, error)
}
