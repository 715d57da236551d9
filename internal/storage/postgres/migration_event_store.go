package postgres

import (
	"context"
	"fmt"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/storage"
)

// MigrationEventStore implements storage.MigrationEventStore using
// PostgreSQL.
type MigrationEventStore struct {
	pool *Pool
}

// NewMigrationEventStore creates a new MigrationEventStore.
func NewMigrationEventStore(pool *Pool) *MigrationEventStore {
	return &MigrationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new migration event. Returns ErrDuplicateKey if
// (mint, tx_signature) exists.
func (s *MigrationEventStore) Insert(ctx context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.Mint == "" || e.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO migration_events (
			mint, pool, tx_signature, block_time, slot, initial_token_amount, initial_quote_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Mint,
		e.Pool,
		e.TxSignature,
		e.BlockTime,
		e.Slot,
		int64(e.InitialTokenAmount),
		int64(e.InitialQuoteAmount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert migration event: %w", err)
	}
	return nil
}

// GetByMint retrieves the earliest migration event for a mint. Returns
// ErrNotFound if the mint never migrated.
func (s *MigrationEventStore) GetByMint(ctx context.Context, mint string) (*domain.MigrationEvent, error) {
	query := `
		SELECT mint, pool, tx_signature, block_time, slot, initial_token_amount, initial_quote_amount
		FROM migration_events
		WHERE mint = $1
		ORDER BY block_time ASC, slot ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, mint)

	var e domain.MigrationEvent
	var tokenAmount, quoteAmount int64
	err := row.Scan(&e.Mint, &e.Pool, &e.TxSignature, &e.BlockTime, &e.Slot, &tokenAmount, &quoteAmount)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get migration event by mint: %w", err)
	}
	e.InitialTokenAmount = uint64(tokenAmount)
	e.InitialQuoteAmount = uint64(quoteAmount)
	return &e, nil
}

// GetRecent retrieves the most recent events, newest first, up to limit.
func (s *MigrationEventStore) GetRecent(ctx context.Context, limit int) ([]*domain.MigrationEvent, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT mint, pool, tx_signature, block_time, slot, initial_token_amount, initial_quote_amount
		FROM migration_events
		ORDER BY block_time DESC, slot DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent migration events: %w", err)
	}
	defer rows.Close()

	var result []*domain.MigrationEvent
	for rows.Next() {
		var e domain.MigrationEvent
		var tokenAmount, quoteAmount int64
		if err := rows.Scan(&e.Mint, &e.Pool, &e.TxSignature, &e.BlockTime, &e.Slot, &tokenAmount, &quoteAmount); err != nil {
			return nil, fmt.Errorf("scan migration event: %w", err)
		}
		e.InitialTokenAmount = uint64(tokenAmount)
		e.InitialQuoteAmount = uint64(quoteAmount)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration events: %w", err)
	}
	return result, nil
}
