package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/storage"
)

// HolderSnapshotStore is an in-memory implementation of
// storage.HolderSnapshotStore.
type HolderSnapshotStore struct {
	mu     sync.RWMutex
	byMint map[string][]*domain.HolderSnapshot
}

// NewHolderSnapshotStore creates a new in-memory holder snapshot store.
func NewHolderSnapshotStore() *HolderSnapshotStore {
	return &HolderSnapshotStore{
		byMint: make(map[string][]*domain.HolderSnapshot),
	}
}

// Compile-time interface check.
var _ storage.HolderSnapshotStore = (*HolderSnapshotStore)(nil)

// Insert adds a snapshot row.
func (s *HolderSnapshotStore) Insert(_ context.Context, snap *domain.HolderSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.byMint[snap.Mint] = append(s.byMint[snap.Mint], &snapCopy)
	return nil
}

// InsertBulk adds multiple snapshot rows.
func (s *HolderSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.HolderSnapshot) error {
	for _, snap := range snapshots {
		if err := s.Insert(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// GetByMint retrieves all snapshots for a mint, ordered by captured_at ASC.
func (s *HolderSnapshotStore) GetByMint(_ context.Context, mint string) ([]*domain.HolderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byMint[mint]
	result := make([]*domain.HolderSnapshot, 0, len(stored))
	for _, snap := range stored {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CapturedAt.Before(result[j].CapturedAt)
	})
	return result, nil
}
