package pubsub

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const (
	saveDone   EventType = "save.completed"
	saveFailed EventType = "save.failed"
	modeFlip   EventType = "pane.mode-changed"
)

type saved struct {
	Path     string
	Revision int64
}

func recv[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for event")
		return Event[T]{}
	}
}

func requireEmpty[T any](t *testing.T, ch <-chan Event[T]) {
	t.Helper()
	select {
	case ev := <-ch:
		require.Failf(t, "unexpected event", "%+v", ev)
	default:
	}
}

func TestBroker_FanOutToEverySubscriber(t *testing.T) {
	broker := NewBroker[saved]()
	defer broker.Close()

	subs := []<-chan Event[saved]{
		broker.Subscribe(context.Background()),
		broker.Subscribe(context.Background()),
	}
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(saveDone, saved{Path: "a.md", Revision: 3})

	for _, ch := range subs {
		ev := recv(t, ch)
		require.Equal(t, saveDone, ev.Type)
		require.Equal(t, saved{Path: "a.md", Revision: 3}, ev.Payload)
		require.False(t, ev.Timestamp.IsZero())
	}
}

func TestBroker_SubscribeFiltersByType(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := broker.Subscribe(ctx, saveFailed)
	all := broker.Subscribe(ctx)

	broker.Publish(modeFlip, "pane-1")
	broker.Publish(saveFailed, "pane-2")

	require.Equal(t, "pane-2", recv(t, failures).Payload)
	requireEmpty(t, failures)
	require.Equal(t, "pane-1", recv(t, all).Payload)
	require.Equal(t, "pane-2", recv(t, all).Payload)
}

func TestBroker_CancelledSubscriptionIsRemoved(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok)
}

func TestBroker_PublishNeverBlocksAndCountsDrops(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 3; i++ {
			broker.Publish(saveDone, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "Publish blocked on a full subscriber")
	}

	require.Equal(t, 1, recv(t, ch).Payload)
	require.Equal(t, int64(2), broker.Dropped())
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, broker.SubscriberCount())

	late := broker.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")

	require.NotPanics(t, func() { broker.Publish(saveDone, "after close") })
}

func TestBroker_WithClock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	broker := NewBroker[string]().WithClock(func() time.Time { return fixed })
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(modeFlip, "p1")

	require.Equal(t, fixed, recv(t, ch).Timestamp)
}

func TestBroker_ConcurrentPublishersAndSubscribers(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1000)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx)

	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				broker.Publish(saveDone, p*100+i)
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = broker.Subscribe(ctx)
		}()
	}
	wg.Wait()

	seen := 0
	for len(ch) > 0 {
		<-ch
		seen++
	}
	require.Equal(t, 400, seen)
	require.Zero(t, broker.Dropped())
}

// Every subscriber filtered to a set of types receives exactly the
// published events of those types, in publish order.
func TestBroker_FilterProperty(t *testing.T) {
	types := []EventType{saveDone, saveFailed, modeFlip}
	rapid.Check(t, func(t *rapid.T) {
		broker := NewBrokerWithBuffer[int](256)
		defer broker.Close()

		want := rapid.SliceOfDistinct(rapid.SampledFrom(types), func(e EventType) EventType { return e }).Draw(t, "filter")
		ch := broker.Subscribe(context.Background(), want...)

		published := rapid.SliceOfN(rapid.SampledFrom(types), 0, 100).Draw(t, "published")
		var expected []int
		for i, typ := range published {
			broker.Publish(typ, i)
			if len(want) == 0 || slices.Contains(want, typ) {
				expected = append(expected, i)
			}
		}

		var got []int
		for len(ch) > 0 {
			got = append(got, (<-ch).Payload)
		}
		if len(expected) != len(got) {
			t.Fatalf("want %d events, got %d", len(expected), len(got))
		}
		for i := range expected {
			if expected[i] != got[i] {
				t.Fatalf("event %d: want %d, got %d", i, expected[i], got[i])
			}
		}
	})
}
