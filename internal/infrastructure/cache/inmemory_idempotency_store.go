package cache

import (
	"context"
	"sync"
	"time"

	appdeduction "github.com/stockpool/backend/internal/application/deduction"
)

// InMemoryIdempotencyStore is a process-local idempotency guard for
// development and tests. Entries expire lazily on access.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewInMemoryIdempotencyStore creates an empty in-memory store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		entries: make(map[string]time.Time),
	}
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, reference string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.entries[reference]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	s.entries[reference] = time.Now().Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[reference]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.entries, reference)
		return false, nil
	}
	return true, nil
}

var _ appdeduction.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
