// Package pubsub provides the typed publish/subscribe broker used for the
// engine's outbound notifications and for log fan-out.
package pubsub

import "time"

// EventType names the kind of event being published. Publishers own their
// type names; the broker only compares them.
type EventType string

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
