// Package autosave runs one debounce timer per view. Every edit re-arms the
// view's timer; when it fires the flush callback decides whether to save.
package autosave

import (
	"sync"
	"time"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// FlushFunc is called when a view's timer fires.
type FlushFunc func(pane host.PaneID)

type entry struct {
	timer clock.Timer
	seq   uint64
}

// Scheduler owns the per-view autosave timers. At most one timer is armed
// per view; arming cancels the previous one.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	enabled  bool
	flush    FlushFunc

	mu        sync.Mutex
	seq       uint64
	timers    map[host.PaneID]entry
	suspended int
	deferred  map[host.PaneID]struct{}
	stopped   bool
}

// New creates a scheduler using the interval for the configured device class.
func New(ctx *core.Context, flush FlushFunc) *Scheduler {
	return &Scheduler{
		clock:    ctx.Clock,
		interval: ctx.Config.AutosaveInterval(),
		enabled:  ctx.Config.Autosave.Enabled,
		flush:    flush,
		timers:   make(map[host.PaneID]entry),
		deferred: make(map[host.PaneID]struct{}),
	}
}

// Interval returns the debounce interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Touch records an edit in pane and re-arms its timer.
func (s *Scheduler) Touch(pane host.PaneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.stopped {
		return
	}
	s.armLocked(pane)
}

func (s *Scheduler) armLocked(pane host.PaneID) {
	if old, ok := s.timers[pane]; ok {
		old.timer.Stop()
	}
	s.seq++
	seq := s.seq
	t := s.clock.AfterFunc(s.interval, func() { s.fire(pane, seq) })
	s.timers[pane] = entry{timer: t, seq: seq}
}

func (s *Scheduler) fire(pane host.PaneID, seq uint64) {
	s.mu.Lock()
	current, ok := s.timers[pane]
	if !ok || current.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, pane)
	if s.suspended > 0 {
		s.deferred[pane] = struct{}{}
		s.mu.Unlock()
		log.Debug(log.CatSave, "Autosave deferred while suspended", "pane", pane)
		return
	}
	s.mu.Unlock()

	s.flush(pane)
}

// Cancel disarms pane's timer and forgets any deferred fire.
func (s *Scheduler) Cancel(pane host.PaneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[pane]; ok {
		e.timer.Stop()
		delete(s.timers, pane)
	}
	delete(s.deferred, pane)
}

// Suspend defers autosave flushes until the matching Resume. Calls nest.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	s.suspended++
	s.mu.Unlock()
}

// Resume ends one Suspend. When the last suspension ends, views whose timer
// fired in the meantime are re-armed.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended == 0 {
		return
	}
	s.suspended--
	if s.suspended > 0 || s.stopped {
		return
	}
	for pane := range s.deferred {
		s.armLocked(pane)
	}
	clear(s.deferred)
}

// Suspended reports whether flushes are currently deferred.
func (s *Scheduler) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended > 0
}

// Pending reports whether pane has an armed timer.
func (s *Scheduler) Pending(pane host.PaneID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[pane]
	return ok
}

// Len returns the number of armed timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer. Further Touch calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pane, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, pane)
	}
	clear(s.deferred)
	s.stopped = true
}
