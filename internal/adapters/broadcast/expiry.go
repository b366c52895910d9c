package broadcast

// Package broadcast provides an in-process fan-out for session-expiry
// events. The error classifier publishes; the session guard subscribes.

import (
	"sync"

	"github.com/agrovia/farmdesk/internal/ports"
)

// ExpiryBroadcaster implements both ports.ExpiryPublisher and
// ports.ExpirySource. Delivery is best-effort: a subscriber that is not
// draining its channel misses events rather than blocking the publisher.
type ExpiryBroadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan ports.SessionExpiryEvent
	nextID int
	closed bool
}

// NewExpiryBroadcaster creates an empty broadcaster.
func NewExpiryBroadcaster() *ExpiryBroadcaster {
	return &ExpiryBroadcaster{subs: make(map[int]chan ports.SessionExpiryEvent)}
}

// Publish delivers the event to every live subscriber. Events without a
// valid timestamp are dropped before delivery.
func (b *ExpiryBroadcaster) Publish(ev ports.SessionExpiryEvent) {
	if ev.Timestamp.IsZero() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; skip rather than block.
		}
	}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function. Cancel is idempotent and closes the channel.
func (b *ExpiryBroadcaster) Subscribe() (<-chan ports.SessionExpiryEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ports.SessionExpiryEvent, 8)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close tears down the broadcaster, closing every subscriber channel.
// Publish and Subscribe become no-ops afterwards.
func (b *ExpiryBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
