// Package undo provides undo-snapshot stores for batch operations.
package undo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventra-io/accredo/pkg/workflow"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "accredo:undo:"

// RedisStore keeps undo snapshots in Redis with a TTL equal to the undo
// window, so expiry enforcement comes for free.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed undo store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Capture stores the snapshot under the operation's key with the given TTL.
func (s *RedisStore) Capture(ctx context.Context, operationID string, entries []workflow.SnapshotEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal undo snapshot: %w", err)
	}

	err = s.client.Set(ctx, keyPrefix+operationID, payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store undo snapshot: %w", err)
	}

	return nil
}

// Fetch loads the snapshot for an operation. An expired or missing key
// yields an empty slice, not an error.
func (s *RedisStore) Fetch(ctx context.Context, operationID string) ([]workflow.SnapshotEntry, error) {
	payload, err := s.client.Get(ctx, keyPrefix+operationID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch undo snapshot: %w", err)
	}

	var entries []workflow.SnapshotEntry

	err = json.Unmarshal(payload, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal undo snapshot: %w", err)
	}

	return entries, nil
}
