package cache

import (
	"context"
	"time"

	"github.com/induservicios/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore remembers processed webhook event IDs in process
// memory. It is suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	m *ttlMap
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store.
// Expired entries are swept every five minutes.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{m: newTTLMap(5 * time.Minute)}
}

// MarkProcessed marks a key as processed with a TTL.
// Returns true if the key was newly marked, false if it was already processed.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.m.setIfAbsent(key, nil, ttl), nil
}

// IsProcessed checks if a key has already been processed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.m.get(key)
	return ok, nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.m.close()
	return nil
}

// Size returns the number of entries, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.m.size()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
