// Package session assembles a running panesync instance: storage, the
// save journal, tracing, the terminal host and the engine, plus the file
// watcher feeding external changes into the engine.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/engine"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/journal"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/simhost"
	"github.com/zjrosen/panesync/internal/storage"
	"github.com/zjrosen/panesync/internal/tracing"
	"github.com/zjrosen/panesync/internal/watcher"
)

// Options adjusts how a session is built.
type Options struct {
	// Clock overrides the wall clock. Replays use a fake clock.
	Clock clock.Clock

	// Watch starts the filesystem watcher.
	Watch bool
}

// Session owns every long-lived collaborator of one run.
type Session struct {
	Ctx     *core.Context
	Store   *storage.Store
	Host    *simhost.Host
	Engine  *engine.Engine
	Journal *journal.Journal

	tracing *tracing.Provider
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Open builds and starts a session rooted at cfg.Storage.Root.
func Open(ctx context.Context, cfg config.Config, opts Options) (*Session, error) {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("creating tracing provider: %w", err)
	}

	coreOpts := []core.Option{core.WithTracer(provider.Tracer())}
	if opts.Clock != nil {
		coreOpts = append(coreOpts, core.WithClock(opts.Clock))
	}
	cctx := core.NewContext(cfg, coreOpts...)

	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		Ctx:     cctx,
		Store:   store,
		Host:    simhost.New(store),
		tracing: provider,
		cancel:  cancel,
	}

	deps := engine.Deps{
		Workspace: s.Host,
		Events:    s.Host,
		Hotkeys:   s.Host,
		Files:     s.Host,
		IsCanvas:  func(path string) bool { return store.IsCanvas(baseCtx, path) },
		Metadata:  store,
	}
	if cfg.Journal.Enabled && cctx.Flags.Enabled(flags.FlagSaveJournal) {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			// The journal is optional; saves still work without it.
			log.WarnErr(log.CatJournal, "Save journal unavailable", err, "path", cfg.JournalPath())
		} else {
			s.Journal = j
			deps.Journal = j
		}
	}

	s.Engine = engine.New(baseCtx, cctx, deps)
	s.Host.SetCallbacks(simhost.Callbacks{
		ViewOpened: func(ctx context.Context, v host.CanvasView) {
			if _, err := s.Engine.ViewOpened(ctx, v); err != nil {
				log.WarnErr(log.CatView, "Canvas view not attached", err, "pane", v.PaneID())
			}
		},
		ViewClosed:       s.Engine.ViewClosed,
		SuppressTextSave: s.Engine.SuppressCompetingSave,
	})
	if err := s.Engine.Start(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	if opts.Watch {
		if err := s.watch(baseCtx); err != nil {
			// Without the watcher external edits are simply not picked up.
			log.WarnErr(log.CatFS, "File watcher unavailable", err, "root", store.Root())
		}
	}

	log.Info(log.CatView, "Session opened", "root", store.Root(), "journal", s.Journal != nil, "tracing", provider.Enabled())
	return s, nil
}

func (s *Session) watch(ctx context.Context) error {
	w, err := watcher.New(watcher.DefaultConfig(s.Store.Root()))
	if err != nil {
		return err
	}
	events, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	s.watcher = w
	go s.Engine.WatchFiles(ctx, events)
	return nil
}

// Watching reports whether the filesystem watcher is running.
func (s *Session) Watching() bool {
	return s.watcher != nil
}

// OpenPane opens path in a new pane of window.
func (s *Session) OpenPane(ctx context.Context, window host.WindowID, path string) (host.PaneID, error) {
	return s.Host.OpenPane(ctx, window, path)
}

// ClosePane closes a pane and forgets its forced mode.
func (s *Session) ClosePane(id host.PaneID) bool {
	if !s.Host.ClosePane(id) {
		return false
	}
	s.Engine.PaneDetached(id)
	return true
}

// OpenWindow opens a popout window and broadcasts styles into it.
func (s *Session) OpenWindow() *simhost.Window {
	w := s.Host.OpenWindow()
	s.Engine.WindowOpened(w)
	return w
}

// CloseWindow closes a popout window together with its panes.
func (s *Session) CloseWindow(id host.WindowID) bool {
	panes, ok := s.Host.CloseWindow(id)
	if !ok {
		return false
	}
	for _, p := range panes {
		s.Engine.PaneDetached(p)
	}
	s.Engine.WindowClosed(id)
	return true
}

// Close tears the engine down and releases storage, the journal and the
// tracer. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.Engine != nil {
		if err := s.Engine.Teardown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.watcher = nil
	}
	s.cancel()
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Journal = nil
	}
	if err := s.tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.Ctx.Close()
	return errors.Join(errs...)
}
