// Package core holds the shared context object handed to every panesync
// component: clock, configuration, feature flags, the outbound notification
// broker and the tracer.
package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/pubsub"
)

// Context is constructed once per engine and passed to component
// constructors. Components keep a reference instead of reading globals.
type Context struct {
	Clock         clock.Clock
	Config        config.Config
	Flags         *flags.Registry
	Notifications *pubsub.Broker[Notification]
	Tracer        trace.Tracer
}

// Option configures a Context.
type Option func(*Context)

// WithClock sets the clock (default: wall clock).
func WithClock(c clock.Clock) Option {
	return func(ctx *Context) { ctx.Clock = c }
}

// WithTracer sets the tracer (default: no-op).
func WithTracer(t trace.Tracer) Option {
	return func(ctx *Context) { ctx.Tracer = t }
}

// WithBroker sets the notification broker (default: a new broker).
func WithBroker(b *pubsub.Broker[Notification]) Option {
	return func(ctx *Context) { ctx.Notifications = b }
}

// NewContext builds a Context from cfg.
func NewContext(cfg config.Config, opts ...Option) *Context {
	c := &Context{
		Config: cfg,
		Flags:  flags.New(cfg.Flags),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Tracer == nil {
		c.Tracer = noop.NewTracerProvider().Tracer("panesync")
	}
	if c.Notifications == nil {
		c.Notifications = pubsub.NewBroker[Notification]().WithClock(c.Clock.Now)
	}
	return c
}

// Notify publishes an outbound notification.
func (c *Context) Notify(kind pubsub.EventType, n Notification) {
	c.Notifications.Publish(kind, n)
}

// StartSpan starts a span named name with string attributes given as
// alternating key/value pairs.
func (c *Context) StartSpan(ctx context.Context, name string, kv ...string) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	return c.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Close releases the notification broker.
func (c *Context) Close() {
	c.Notifications.Close()
}
