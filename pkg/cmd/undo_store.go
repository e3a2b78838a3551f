package cmd

import (
	"fmt"

	"github.com/eventra-io/accredo/pkg/undo"
	"github.com/eventra-io/accredo/pkg/workflow"
	redis "github.com/redis/go-redis/v9"
)

// NewUndoStore creates the undo snapshot store. Without a Redis URL the
// snapshots live in process memory, which is enough for single-instance
// deployments.
func NewUndoStore(redisURL string) workflow.UndoStore {
	if redisURL == "" {
		return undo.NewMemoryStore()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return undo.NewRedisStore(redis.NewClient(opts))
}
