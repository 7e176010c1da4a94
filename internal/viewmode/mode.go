// Package viewmode decides whether a pane shows a document as text or as a
// canvas. It keeps the per-pane forced-mode table, the one-shot "open as
// text" override and the interception hook the host calls before applying a
// pane-state change.
package viewmode

import (
	"sync"

	"github.com/zjrosen/panesync/internal/host"
)

// Mode is an effective presentation mode.
type Mode int

const (
	// ModeUnspecified asks the registry to derive the mode.
	ModeUnspecified Mode = iota
	MarkdownForced
	CanvasForced
)

func (m Mode) String() string {
	switch m {
	case MarkdownForced:
		return "markdown"
	case CanvasForced:
		return "canvas"
	default:
		return "unspecified"
	}
}

// ViewType maps a mode to the host presentation type.
func (m Mode) ViewType() host.ViewType {
	if m == CanvasForced {
		return host.ViewTypeCanvas
	}
	return host.ViewTypeText
}

// State is the registry's view of a pane.
type State int

const (
	StateUnknown State = iota
	StateMarkdownForced
	StateCanvasForced
	StateDefaultFromMetadata
)

func (s State) String() string {
	switch s {
	case StateMarkdownForced:
		return "markdown-forced"
	case StateCanvasForced:
		return "canvas-forced"
	case StateDefaultFromMetadata:
		return "default-from-metadata"
	default:
		return "unknown"
	}
}

// PaneModes is the ephemeral pane → forced mode table. Entries are removed
// with Detach when the pane goes away.
type PaneModes struct {
	mu      sync.Mutex
	entries map[host.PaneID]Mode
}

// NewPaneModes returns an empty table.
func NewPaneModes() *PaneModes {
	return &PaneModes{entries: make(map[host.PaneID]Mode)}
}

// Get returns the forced mode for pane.
func (p *PaneModes) Get(pane host.PaneID) (Mode, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.entries[pane]
	return m, ok
}

// Set forces pane to mode. ModeUnspecified clears the entry.
func (p *PaneModes) Set(pane host.PaneID, mode Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mode == ModeUnspecified {
		delete(p.entries, pane)
		return
	}
	p.entries[pane] = mode
}

// Clear removes the entry for pane.
func (p *PaneModes) Clear(pane host.PaneID) {
	p.Set(pane, ModeUnspecified)
}

// Detach is called when the pane detaches. It reports whether an entry
// was removed.
func (p *PaneModes) Detach(pane host.PaneID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[pane]
	delete(p.entries, pane)
	return ok
}

// Len returns the number of entries.
func (p *PaneModes) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// OneShot is a single-entry table keyed by path. The entry is consumed by
// the first matching read.
type OneShot struct {
	mu   sync.Mutex
	path string
}

// Arm sets the pending path, replacing any previous one.
func (o *OneShot) Arm(path string) {
	o.mu.Lock()
	o.path = path
	o.mu.Unlock()
}

// Consume reports whether path was pending and clears it if so.
func (o *OneShot) Consume(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.path == "" || o.path != path {
		return false
	}
	o.path = ""
	return true
}

// Pending returns the armed path.
func (o *OneShot) Pending() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.path, o.path != ""
}

// Rename moves a pending entry from one path to another.
func (o *OneShot) Rename(from, to string) {
	o.mu.Lock()
	if o.path == from && from != "" {
		o.path = to
	}
	o.mu.Unlock()
}
