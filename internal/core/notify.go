package core

import (
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/pubsub"
)

// Outbound notification types consumed by UI chrome and embed renderers.
const (
	EmbedRefreshRequested pubsub.EventType = "embed.refresh-requested"
	BackgroundChanged     pubsub.EventType = "canvas.background-changed"
	ModeChanged           pubsub.EventType = "pane.mode-changed"
	SaveFailed            pubsub.EventType = "save.failed"
	SaveCompleted         pubsub.EventType = "save.completed"
	ObserverDisabled      pubsub.EventType = "observer.disabled"
)

// Notification is the payload of every outbound notification. Only the
// fields relevant to the type are set.
type Notification struct {
	Pane     host.PaneID
	Path     string
	Mode     host.ViewType
	Color    string
	Revision int64
	Source   string
	Err      error
}
