// Package snapshot provides the stores that publish refresh results.
package snapshot

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
)

// MemoryStore keeps the latest snapshot in process memory.
type MemoryStore struct {
	generation atomic.Uint64

	mu      sync.RWMutex
	current *domain.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NextGeneration reserves the next generation number.
func (s *MemoryStore) NextGeneration(ctx context.Context) (uint64, error) {
	return s.generation.Add(1), nil
}

// Publish replaces the current snapshot unless a newer one is published.
func (s *MemoryStore) Publish(ctx context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && snapshot.Generation <= s.current.Generation {
		return domain.ErrStaleSnapshot
	}
	s.current = snapshot
	return nil
}

// Latest returns the published snapshot.
func (s *MemoryStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrNoSnapshot
	}
	return s.current, nil
}
