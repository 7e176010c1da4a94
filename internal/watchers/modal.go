package watchers

import (
	"context"

	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
)

// ModalContainer saves the active view when a single overlay is inserted
// under the window body. Batches adding more than one node are ignored.
type ModalContainer struct {
	observer
	views   Views
	baseCtx context.Context
}

// NewModalContainer creates a disabled modal watcher. Saves it triggers
// run under baseCtx.
func NewModalContainer(baseCtx context.Context, ctx *core.Context, events host.UIEvents, views Views) *ModalContainer {
	m := &ModalContainer{views: views, baseCtx: baseCtx}
	m.observer = observer{name: NameModal, kind: host.EventOverlayAppeared, ctx: ctx, events: events, handle: m.onEvent}
	return m
}

// Enable subscribes to overlay insertions.
func (m *ModalContainer) Enable() error { return m.enable() }

// Disable unsubscribes.
func (m *ModalContainer) Disable() { m.disable() }

func (m *ModalContainer) onEvent(ev host.UIEvent) {
	if !singleInsertion(ev.Records) {
		return
	}
	saveActive(m.baseCtx, m.views, NameModal)
}

func singleInsertion(records []host.MutationRecord) bool {
	return len(records) == 1 && records[0].AddedNodes == 1
}
