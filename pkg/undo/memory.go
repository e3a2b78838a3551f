package undo

import (
	"context"
	"sync"
	"time"

	"github.com/eventra-io/accredo/pkg/workflow"
)

// MemoryStore is an in-process undo store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]memorySnapshot
	now       func() time.Time
}

type memorySnapshot struct {
	entries   []workflow.SnapshotEntry
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory undo store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]memorySnapshot),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Capture(_ context.Context, operationID string, entries []workflow.SnapshotEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]workflow.SnapshotEntry, len(entries))
	copy(copied, entries)

	s.snapshots[operationID] = memorySnapshot{
		entries:   copied,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, operationID string) ([]workflow.SnapshotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[operationID]
	if !ok || s.now().After(snapshot.expiresAt) {
		return nil, nil
	}

	entries := make([]workflow.SnapshotEntry, len(snapshot.entries))
	copy(entries, snapshot.entries)

	return entries, nil
}
