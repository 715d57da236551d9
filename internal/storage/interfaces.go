package storage

import (
	"context"

	"solana-mint-intel/internal/domain"
)

// MigrationEventStore is an append-only journal of observed migrations.
type MigrationEventStore interface {
	// Insert adds a new migration event. Returns ErrDuplicateKey if
	// (mint, tx_signature) exists.
	Insert(ctx context.Context, e *domain.MigrationEvent) error

	// GetByMint retrieves the migration event for a mint. Returns
	// ErrNotFound if the mint never migrated.
	GetByMint(ctx context.Context, mint string) (*domain.MigrationEvent, error)

	// GetRecent retrieves the most recent events, newest first, up to limit.
	// Used to warm the detector cache at startup.
	GetRecent(ctx context.Context, limit int) ([]*domain.MigrationEvent, error)
}

// HolderSnapshotStore is an append-only record of holder concentration
// snapshots, one row per uncached analysis.
type HolderSnapshotStore interface {
	// Insert adds a snapshot row.
	Insert(ctx context.Context, s *domain.HolderSnapshot) error

	// InsertBulk adds multiple snapshot rows in one round trip.
	InsertBulk(ctx context.Context, snapshots []*domain.HolderSnapshot) error

	// GetByMint retrieves all snapshots for a mint, ordered by captured_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.HolderSnapshot, error)
}
