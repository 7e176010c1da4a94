package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/flags"
)

func TestNewContext_Defaults(t *testing.T) {
	c := NewContext(config.Defaults())
	defer c.Close()

	require.NotNil(t, c.Clock)
	require.NotNil(t, c.Tracer)
	require.NotNil(t, c.Notifications)
	require.True(t, c.Flags.Enabled(flags.FlagSaveJournal))
}

func TestNotify_UsesContextClock(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	c := NewContext(config.Defaults(), WithClock(fake))
	defer c.Close()

	ch := c.Notifications.Subscribe(context.Background(), EmbedRefreshRequested)
	c.Notify(ModeChanged, Notification{Pane: "p1"})
	c.Notify(EmbedRefreshRequested, Notification{Path: "a.md"})

	event := <-ch
	require.Equal(t, "a.md", event.Payload.Path)
	require.Equal(t, start, event.Timestamp)
}

func TestStartSpan_NoopTracer(t *testing.T) {
	c := NewContext(config.Defaults())
	defer c.Close()

	ctx, span := c.StartSpan(context.Background(), "save", "path", "a.md", "dangling")
	defer span.End()
	require.NotNil(t, ctx)
	require.False(t, span.IsRecording())
}
