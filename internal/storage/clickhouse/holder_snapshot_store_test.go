package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/storage"
)

func TestHolderSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderSnapshotStore(conn)
	ctx := context.Background()

	t0 := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, store.Insert(ctx, &domain.HolderSnapshot{
		Mint:            "Mint1",
		CapturedAt:      t0.Add(time.Hour),
		HolderCount:     200,
		Top10Percent:    41.5,
		ExchangePercent: 3.2,
		LPPercent:       18.0,
		Source:          domain.SourceRPC,
	}))
	require.NoError(t, store.Insert(ctx, &domain.HolderSnapshot{
		Mint:        "Mint1",
		CapturedAt:  t0,
		HolderCount: 120,
		Source:      domain.SourceBirdeye,
	}))

	got, err := store.GetByMint(ctx, "Mint1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 120, got[0].HolderCount, "captured_at ascending")
	assert.Equal(t, domain.SourceBirdeye, got[0].Source)
	assert.Equal(t, 200, got[1].HolderCount)
	assert.InDelta(t, 41.5, got[1].Top10Percent, 1e-9)
	assert.True(t, got[1].CapturedAt.Equal(t0.Add(time.Hour)))
}

func TestHolderSnapshotStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderSnapshotStore(conn)
	ctx := context.Background()

	t0 := time.Unix(1_700_000_000, 0).UTC()
	snapshots := []*domain.HolderSnapshot{
		{Mint: "Mint1", CapturedAt: t0, HolderCount: 10, Source: domain.SourceGMGN},
		{Mint: "Mint1", CapturedAt: t0.Add(time.Minute), HolderCount: 11, Source: domain.SourceGMGN},
		{Mint: "Mint2", CapturedAt: t0, HolderCount: 5, Source: domain.SourceRPC},
	}
	require.NoError(t, store.InsertBulk(ctx, snapshots))

	got, err := store.GetByMint(ctx, "Mint1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetByMint(ctx, "Mint2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHolderSnapshotStore_GetByMintEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderSnapshotStore(conn)

	got, err := store.GetByMint(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHolderSnapshotStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderSnapshotStore(conn)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.HolderSnapshot{}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.HolderSnapshot{{Mint: "m"}, nil}), storage.ErrInvalidInput)
}
