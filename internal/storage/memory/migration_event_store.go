// Package memory provides in-memory storage implementations used in tests
// and in deployments without durable storage configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/storage"
)

// MigrationEventStore is an in-memory implementation of
// storage.MigrationEventStore.
type MigrationEventStore struct {
	mu sync.RWMutex
	// byMint keeps the first event per mint; order preserves insertion
	// for GetRecent.
	byMint map[string]*domain.MigrationEvent
	order  []*domain.MigrationEvent
	seen   map[string]struct{} // mint + "\x00" + tx_signature
}

// NewMigrationEventStore creates a new in-memory migration event store.
func NewMigrationEventStore() *MigrationEventStore {
	return &MigrationEventStore{
		byMint: make(map[string]*domain.MigrationEvent),
		seen:   make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new migration event. Returns ErrDuplicateKey if
// (mint, tx_signature) exists.
func (s *MigrationEventStore) Insert(_ context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.Mint == "" || e.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Mint + "\x00" + e.TxSignature
	if _, exists := s.seen[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.seen[key] = struct{}{}

	// Store a copy to prevent external mutation
	eventCopy := *e
	s.order = append(s.order, &eventCopy)
	if _, exists := s.byMint[e.Mint]; !exists {
		s.byMint[e.Mint] = &eventCopy
	}
	return nil
}

// GetByMint retrieves the migration event for a mint. Returns ErrNotFound
// if the mint never migrated.
func (s *MigrationEventStore) GetByMint(_ context.Context, mint string) (*domain.MigrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	eventCopy := *e
	return &eventCopy, nil
}

// GetRecent retrieves the most recent events, newest first, up to limit.
func (s *MigrationEventStore) GetRecent(_ context.Context, limit int) ([]*domain.MigrationEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MigrationEvent, 0, len(s.order))
	for _, e := range s.order {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	// Newest first by block time, falling back to insertion order.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BlockTime > result[j].BlockTime
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
