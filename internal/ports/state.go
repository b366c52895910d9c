package ports

import (
	"context"
	"time"

	"github.com/agrovia/farmdesk/internal/domain/model"
)

// SelectionStore persists the per-user current-farm pointer. The pointer is
// durable (survives sessions); staleness is enforced by the reader, not by a
// storage TTL.
type SelectionStore interface {
	// Save writes the selection snapshot for a user. Writes are idempotent
	// snapshots, so last-write-wins is acceptable.
	Save(ctx context.Context, userID string, sel model.FarmSelection) error

	// Load returns the stored selection and true, or a zero value and false
	// when nothing (or something unreadable) is stored. Corrupt entries are
	// deleted and reported as absent.
	Load(ctx context.Context, userID string) (model.FarmSelection, bool, error)

	// Clear removes the stored selection.
	Clear(ctx context.Context, userID string) error
}

// ScratchStore is a session-scoped key/value store. Entries carry the
// remaining lifetime of the session that wrote them; entries older than the
// session are absent, not stale.
type ScratchStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil with no error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// ExpiryPublisher broadcasts session-expiry events classified by the backend
// error handler. It replaces an out-of-band broadcast with an explicit
// subscription interface.
type ExpiryPublisher interface {
	Publish(ev SessionExpiryEvent)
}

// ExpirySource is the consuming side of the expiry broadcast. Subscribe
// returns a restartable stream of events plus a cancel function; events
// without a valid timestamp are filtered out before delivery.
type ExpirySource interface {
	Subscribe() (<-chan SessionExpiryEvent, func())
}

// SessionExpiryEvent is the ephemeral signal that a backend-issued credential
// expired. It exists only for the duration of dispatch and carries only a
// timestamp and the affected session.
type SessionExpiryEvent struct {
	SessionID string
	Location  string // in-app location at the moment of expiry
	Timestamp time.Time
}
