package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovia/farmdesk/internal/ports"
)

func expiryEvent(sessionID string) ports.SessionExpiryEvent {
	return ports.SessionExpiryEvent{
		SessionID: sessionID,
		Location:  "/farms",
		Timestamp: time.Now(),
	}
}

func TestExpiryBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := NewExpiryBroadcaster()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(expiryEvent("sess-1"))

	for _, ch := range []<-chan ports.SessionExpiryEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "sess-1", ev.SessionID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestExpiryBroadcaster_DropsEventsWithoutTimestamp(t *testing.T) {
	b := NewExpiryBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(ports.SessionExpiryEvent{SessionID: "sess-1"})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExpiryBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewExpiryBroadcaster()
	defer b.Close()

	_, cancel := b.Subscribe()
	defer cancel()

	// Overfill the buffered channel; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(expiryEvent("sess-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestExpiryBroadcaster_CancelStopsDelivery(t *testing.T) {
	b := NewExpiryBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()
	// Cancel is idempotent.
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	b.Publish(expiryEvent("sess-1"))
}

func TestExpiryBroadcaster_CloseShutsDownSubscribers(t *testing.T) {
	b := NewExpiryBroadcaster()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Close()

	_, open := <-ch
	require.False(t, open)

	// Subscribe after close returns an already-closed channel.
	ch2, cancel2 := b.Subscribe()
	defer cancel2()
	_, open = <-ch2
	assert.False(t, open)
}
