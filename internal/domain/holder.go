package domain

import "time"

// HolderSource identifies which data source produced a holder analysis.
type HolderSource string

// Holder data sources in fallback priority order.
const (
	SourceBirdeye HolderSource = "birdeye"
	SourceGMGN    HolderSource = "gmgn"
	SourceHelius  HolderSource = "helius"
	SourceRPC     HolderSource = "rpc"
	SourceMixed   HolderSource = "mixed"
)

// HolderRecord is a single holder of a mint with decimal-adjusted balance.
// Flags are informative, not exclusive: a holder can be both bundled and
// a sniper.
type HolderRecord struct {
	Address string
	// Balance is the decimal-adjusted token amount.
	Balance float64
	// Percent is the share of total supply in [0,100].
	Percent float64
	// Label is a human-readable attribution, empty if unknown.
	Label string

	IsExchange bool
	IsLP       bool
	IsCreator  bool
	IsBundled  bool
	IsSniper   bool
	IsInsider  bool
}

// HolderAnalysisResult is the unified holder view for a mint.
// Immutable once returned; superseded after the holder cache TTL.
type HolderAnalysisResult struct {
	Mint string
	// HolderCount is the total number of holders. Zero means "unknown",
	// not "no holders" (lower-fidelity sources cannot count).
	HolderCount int
	// TopHolders holds up to 20 records ordered by balance descending.
	TopHolders []HolderRecord
	// Top10Percent is the supply share of the 10 largest holders.
	Top10Percent float64
	// ExchangePercent is the aggregate share held by known exchanges.
	ExchangePercent float64
	// LPPercent is the aggregate share held by liquidity pools.
	LPPercent float64
	// Source tags which upstream produced this result so downstream risk
	// logic can weight confidence.
	Source     HolderSource
	CapturedAt time.Time
}

// HolderSnapshot is an append-only analytics record of a holder analysis,
// persisted for concentration-over-time queries.
type HolderSnapshot struct {
	Mint            string
	CapturedAt      time.Time
	HolderCount     int
	Top10Percent    float64
	ExchangePercent float64
	LPPercent       float64
	Source          HolderSource
}
