// Package hotkeys manages the single override scope installed in the host's
// hotkey chain while a canvas view is active.
package hotkeys

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/key"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/keys"
	"github.com/zjrosen/panesync/internal/log"
)

// Override pairs a binding with its action.
type Override struct {
	Binding key.Binding
	Run     func() bool
}

type scope struct {
	owner host.PaneID
	ids   []host.HandlerID
}

// Stack holds at most one scope. Pushing while a scope is active pops it first.
type Stack struct {
	chain        host.HotkeyChain
	saveOverride bool
	saveBinding  key.Binding

	mu    sync.Mutex
	scope *scope
}

// New creates a stack registering into chain.
func New(ctx *core.Context, chain host.HotkeyChain) *Stack {
	return &Stack{
		chain:        chain,
		saveOverride: ctx.Config.Hotkeys.SaveShortcutIsModS(),
		saveBinding:  keys.Canvas.Save,
	}
}

// Push installs overrides for owner at the front of the chain, plus save
// when the configured save shortcut is mod+s and save is non-nil.
// On a registration error every handler of this push is removed again.
func (s *Stack) Push(owner host.PaneID, overrides []Override, save func() bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope != nil {
		log.Debug(log.CatHotkey, "Implicit pop before push", "previous", s.scope.owner, "next", owner)
		s.popLocked()
	}

	handlers := make([]host.KeyHandler, 0, len(overrides)+1)
	for _, o := range overrides {
		if !o.Binding.Enabled() || o.Run == nil {
			continue
		}
		handlers = append(handlers, handlerFor(o))
	}
	if s.saveOverride && save != nil {
		handlers = append(handlers, handlerFor(Override{Binding: s.saveBinding, Run: save}))
	}

	sc := &scope{owner: owner, ids: make([]host.HandlerID, 0, len(handlers))}
	for _, h := range handlers {
		id, err := s.chain.RegisterFront(h)
		if err != nil {
			s.scope = sc
			s.popLocked()
			return fmt.Errorf("registering %q: %w", h.Description, err)
		}
		sc.ids = append(sc.ids, id)
	}
	s.scope = sc
	log.Debug(log.CatHotkey, "Scope pushed", "owner", owner, "handlers", len(sc.ids))
	return nil
}

// Pop removes every handler of the active scope in reverse registration
// order. No-op when nothing is pushed.
func (s *Stack) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popLocked()
}

func (s *Stack) popLocked() {
	if s.scope == nil {
		return
	}
	for i := len(s.scope.ids) - 1; i >= 0; i-- {
		s.chain.Unregister(s.scope.ids[i])
	}
	log.Debug(log.CatHotkey, "Scope popped", "owner", s.scope.owner, "handlers", len(s.scope.ids))
	s.scope = nil
}

// Owner returns the pane owning the active scope.
func (s *Stack) Owner() (host.PaneID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope == nil {
		return "", false
	}
	return s.scope.owner, true
}

// Depth returns 1 when a scope is active, else 0.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope == nil {
		return 0
	}
	return 1
}

func handlerFor(o Override) host.KeyHandler {
	return host.KeyHandler{
		Keys:        o.Binding.Keys(),
		Description: o.Binding.Help().Desc,
		Run:         o.Run,
	}
}
