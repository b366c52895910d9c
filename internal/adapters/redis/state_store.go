package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrovia/farmdesk/internal/domain/model"
)

// SelectionStore persists the per-user current-farm pointer. Entries are
// durable: no TTL is attached, and freshness is the reader's concern. A
// pointer that fails to decode is removed and reported as absent, so a bad
// write never wedges a user.
type SelectionStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewSelectionStore creates a Redis-backed current-farm selection store.
func NewSelectionStore(client redis.UniversalClient, logger *slog.Logger) *SelectionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectionStore{
		client: client,
		prefix: "farmsel:",
		logger: logger.With("component", "selection_store"),
	}
}

// Save writes the selection snapshot for a user. Last write wins.
func (s *SelectionStore) Save(ctx context.Context, userID string, sel model.FarmSelection) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}

	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal farm selection: %w", err)
	}

	// TTL 0: the pointer outlives the session on purpose.
	return s.client.Set(ctx, s.prefix+userID, data, 0).Err()
}

// Load returns the stored selection and true, or a zero value and false when
// nothing usable is stored.
func (s *SelectionStore) Load(ctx context.Context, userID string) (model.FarmSelection, bool, error) {
	if userID == "" {
		return model.FarmSelection{}, false, errors.New("user ID cannot be empty")
	}

	key := s.prefix + userID
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.FarmSelection{}, false, nil
		}
		return model.FarmSelection{}, false, fmt.Errorf("redis get: %w", err)
	}

	var sel model.FarmSelection
	if unmarshalErr := json.Unmarshal([]byte(data), &sel); unmarshalErr != nil || sel.FarmID == "" {
		s.logger.WarnContext(ctx, "discarding unreadable farm selection", "user_id", userID)
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			return model.FarmSelection{}, false, fmt.Errorf("cleanup corrupt selection: %w", delErr)
		}
		return model.FarmSelection{}, false, nil
	}

	return sel, true, nil
}

// PurgeStaleSelections scans the selection keyspace and deletes pointers
// whose timestamp is older than maxAge. At most batchSize deletions happen
// per call; the return value is the number deleted, so callers loop until a
// pass removes nothing.
func (s *SelectionStore) PurgeStaleSelections(
	ctx context.Context,
	maxAge time.Duration,
	batchSize int,
) (int64, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	cutoff := time.Now().Add(-maxAge)

	var deleted int64
	iter := s.client.Scan(ctx, 0, s.prefix+"*", int64(batchSize)).Iterator()
	for iter.Next(ctx) {
		if deleted >= int64(batchSize) {
			break
		}
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return deleted, fmt.Errorf("redis get: %w", err)
		}

		var sel model.FarmSelection
		stale := json.Unmarshal([]byte(data), &sel) != nil || sel.Timestamp.Before(cutoff)
		if !stale {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan selections: %w", err)
	}
	return deleted, nil
}

// Clear removes the stored selection for a user.
func (s *SelectionStore) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+userID).Err()
}

// ScratchStore is a session-scoped key/value store over Redis. Callers attach
// the remaining session lifetime as TTL so entries never outlive the session
// that wrote them.
type ScratchStore struct {
	client redis.UniversalClient
	prefix string
}

// NewScratchStore creates a Redis-backed scratch store.
func NewScratchStore(client redis.UniversalClient) *ScratchStore {
	return &ScratchStore{client: client, prefix: "scratch:"}
}

// Set stores a value with the given TTL.
func (s *ScratchStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("scratch entries require a positive TTL")
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Get returns the stored value, or nil with no error when the key is absent.
func (s *ScratchStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	data, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return []byte(data), nil
}

// Delete removes a key from the scratch store.
func (s *ScratchStore) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}
