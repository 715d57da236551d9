package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/storage"
)

// HolderSnapshotStore implements storage.HolderSnapshotStore using ClickHouse.
type HolderSnapshotStore struct {
	conn *Conn
}

// NewHolderSnapshotStore creates a new HolderSnapshotStore.
func NewHolderSnapshotStore(conn *Conn) *HolderSnapshotStore {
	return &HolderSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HolderSnapshotStore = (*HolderSnapshotStore)(nil)

// Insert adds a single snapshot row.
func (s *HolderSnapshotStore) Insert(ctx context.Context, snap *domain.HolderSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.HolderSnapshot{snap})
}

// InsertBulk adds multiple snapshot rows in a single batch. The table is
// append-only, duplicates are not checked.
func (s *HolderSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.HolderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO holder_snapshots (
			mint, captured_at, holder_count, top10_percent, exchange_percent, lp_percent, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Mint, snap.CapturedAt, uint32(snap.HolderCount),
			snap.Top10Percent, snap.ExchangePercent, snap.LPPercent,
			string(snap.Source),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all snapshots for a mint, ordered by captured_at ASC.
func (s *HolderSnapshotStore) GetByMint(ctx context.Context, mint string) ([]*domain.HolderSnapshot, error) {
	query := `
		SELECT mint, captured_at, holder_count, top10_percent, exchange_percent, lp_percent, source
		FROM holder_snapshots
		WHERE mint = ?
		ORDER BY captured_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query holder snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.HolderSnapshot
	for rows.Next() {
		var (
			snap        domain.HolderSnapshot
			capturedAt  time.Time
			holderCount uint32
			source      string
		)
		err := rows.Scan(
			&snap.Mint, &capturedAt, &holderCount,
			&snap.Top10Percent, &snap.ExchangePercent, &snap.LPPercent,
			&source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan holder snapshot: %w", err)
		}
		snap.CapturedAt = capturedAt
		snap.HolderCount = int(holderCount)
		snap.Source = domain.HolderSource(source)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder snapshots: %w", err)
	}
	return result, nil
}
