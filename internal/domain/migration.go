package domain

// MigrationEvent records a bonding-curve to AMM liquidity migration.
// Created once per detected migration and immutable afterwards.
type MigrationEvent struct {
	Mint string
	// Pool is the newly initialized AMM pool (LP) address.
	Pool        string
	TxSignature string
	// BlockTime is the unix timestamp of the migration transaction,
	// zero when the ledger did not report one.
	BlockTime int64
	Slot      int64
	// InitialTokenAmount and InitialQuoteAmount are the raw initial pool
	// reserves when they could be read from post-transaction balances.
	InitialTokenAmount uint64
	InitialQuoteAmount uint64
}
