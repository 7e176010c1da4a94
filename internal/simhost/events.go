package simhost

import (
	"slices"
	"sync"

	"github.com/zjrosen/panesync/internal/host"
)

type events struct {
	mu        sync.Mutex
	next      int
	observers map[host.EventKind]map[int]func(host.UIEvent)
}

func newEvents() *events {
	return &events{observers: make(map[host.EventKind]map[int]func(host.UIEvent))}
}

func (e *events) observe(kind host.EventKind, fn func(host.UIEvent)) host.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	if e.observers[kind] == nil {
		e.observers[kind] = make(map[int]func(host.UIEvent))
	}
	e.observers[kind][id] = fn
	return &subscription{events: e, kind: kind, id: id}
}

// emit delivers ev synchronously, in subscription order.
func (e *events) emit(ev host.UIEvent) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.observers[ev.Kind]))
	for id := range e.observers[ev.Kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(host.UIEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.observers[ev.Kind][id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *events) count(kind host.EventKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers[kind])
}

type subscription struct {
	events *events
	kind   host.EventKind
	id     int
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.events.mu.Lock()
		delete(s.events.observers[s.kind], s.id)
		s.events.mu.Unlock()
	})
}

// Observers returns the number of live observers of kind.
func (h *Host) Observers(kind host.EventKind) int {
	return h.events.count(kind)
}

type registered struct {
	id      host.HandlerID
	handler host.KeyHandler
}

type chain struct {
	mu      sync.Mutex
	next    host.HandlerID
	entries []registered
}

func (c *chain) registerFront(k host.KeyHandler) host.HandlerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.entries = slices.Insert(c.entries, 0, registered{id: c.next, handler: k})
	return c.next
}

func (c *chain) unregister(id host.HandlerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = slices.DeleteFunc(c.entries, func(r registered) bool { return r.id == id })
}

func (c *chain) list() []host.KeyHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]host.KeyHandler, len(c.entries))
	for i, r := range c.entries {
		out[i] = r.handler
	}
	return out
}

func (c *chain) dispatch(key string) bool {
	for _, h := range c.list() {
		if slices.Contains(h.Keys, key) && h.Run != nil && h.Run() {
			return true
		}
	}
	return false
}
