package watchers

import (
	"context"
	"errors"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/host"
)

// Deps are the collaborators watchers observe and act on.
type Deps struct {
	Events   host.UIEvents
	Views    Views
	Files    host.FileList // nil disables file list annotation
	IsCanvas func(path string) bool
}

// Set holds the watchers enabled by configuration.
type Set struct {
	watchers []Watcher
}

// NewSet builds the configured watchers. The drawer watcher only exists on
// compact devices; file list annotation needs both its config switch and
// the file-list-annotation flag.
func NewSet(baseCtx context.Context, ctx *core.Context, deps Deps) *Set {
	cfg := ctx.Config.Watchers
	s := &Set{}
	if cfg.Theme {
		s.watchers = append(s.watchers, NewTheme(ctx, deps.Events, deps.Views))
	}
	if cfg.Modal {
		s.watchers = append(s.watchers, NewModalContainer(baseCtx, ctx, deps.Events, deps.Views))
	}
	if cfg.Drawer && ctx.Config.Compact() {
		s.watchers = append(s.watchers, NewDrawer(baseCtx, ctx, deps.Events, deps.Views))
	}
	if cfg.FileList && deps.Files != nil && deps.IsCanvas != nil && ctx.Flags.Enabled(flags.FlagFileListAnnotation) {
		s.watchers = append(s.watchers, NewFileListAnnotation(ctx, deps.Events, deps.Files, deps.IsCanvas))
	}
	return s
}

// EnableAll enables every watcher. A watcher that fails stays disabled
// without affecting the others; the failures are joined.
func (s *Set) EnableAll() error {
	var errs []error
	for _, w := range s.watchers {
		if err := w.Enable(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisableAll disconnects every watcher.
func (s *Set) DisableAll() {
	for _, w := range s.watchers {
		w.Disable()
	}
}

// Get returns the watcher called name.
func (s *Set) Get(name string) (Watcher, bool) {
	for _, w := range s.watchers {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

// Names returns the names of the configured watchers.
func (s *Set) Names() []string {
	names := make([]string, len(s.watchers))
	for i, w := range s.watchers {
		names[i] = w.Name()
	}
	return names
}

// Connected returns the number of enabled watchers.
func (s *Set) Connected() int {
	n := 0
	for _, w := range s.watchers {
		if w.Enabled() {
			n++
		}
	}
	return n
}
