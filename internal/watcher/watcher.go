// Package watcher reports debounced document changes under a storage root.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/panesync/internal/log"
)

// Op is the kind of change reported for a document.
type Op int

const (
	Modified Op = iota
	Created
	Deleted
	Renamed
)

func (o Op) String() string {
	switch o {
	case Modified:
		return "modified"
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one debounced change. Paths are slash-separated and relative to
// the root. From is set for renames.
type Event struct {
	Op   Op
	Path string
	From string
}

// Config holds watcher configuration options.
type Config struct {
	Root        string
	DebounceDur time.Duration
	Extensions  []string
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		DebounceDur: 200 * time.Millisecond,
		Extensions:  []string{".md"},
	}
}

// Watcher monitors a directory tree for document changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	events    chan Event
	done      chan struct{}
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the root and every non-hidden directory below it.
func (w *Watcher) Start() (<-chan Event, error) {
	err := filepath.WalkDir(w.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.cfg.Root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go w.loop()
	return w.events, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

type pending struct {
	op   Op
	from string
}

func (w *Watcher) loop() {
	var (
		timer      *time.Timer
		timerC     <-chan time.Time
		changes    = make(map[string]pending)
		renameFrom string
	)

	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.cfg.DebounceDur)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.DebounceDur)
		}
		timerC = timer.C
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.watchNewDir(event) {
				continue
			}
			rel, relevant := w.relevant(event.Name)
			if !relevant {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Rename):
				renameFrom = rel
				changes[rel] = pending{op: Deleted}
			case event.Op.Has(fsnotify.Create) && renameFrom != "":
				delete(changes, renameFrom)
				changes[rel] = pending{op: Renamed, from: renameFrom}
				renameFrom = ""
			case event.Op.Has(fsnotify.Create):
				changes[rel] = pending{op: Created}
			case event.Op.Has(fsnotify.Remove):
				changes[rel] = pending{op: Deleted}
			case event.Op.Has(fsnotify.Write):
				if _, seen := changes[rel]; !seen {
					changes[rel] = pending{op: Modified}
				}
			default:
				continue
			}
			arm()

		case <-timerC:
			timerC = nil
			renameFrom = ""
			if !w.flush(changes) {
				return
			}
			clear(changes)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.WarnErr(log.CatFS, "File watcher error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) flush(changes map[string]pending) bool {
	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		c := changes[p]
		ev := Event{Op: c.op, Path: p, From: c.from}
		select {
		case w.events <- ev:
			log.Debug(log.CatFS, "File event", "op", ev.Op, "path", ev.Path, "from", ev.From)
		case <-w.done:
			return false
		}
	}
	return true
}

func (w *Watcher) watchNewDir(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return true
	}
	if err := w.fsWatcher.Add(event.Name); err != nil {
		log.WarnErr(log.CatFS, "Failed to watch new directory", err, "dir", event.Name)
	}
	return true
}

// relevant maps an absolute event path to a root-relative document path.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.cfg.Root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	if len(w.cfg.Extensions) == 0 {
		return rel, true
	}
	return rel, slices.Contains(w.cfg.Extensions, filepath.Ext(rel))
}
