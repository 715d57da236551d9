// Package holders aggregates the holder distribution of a mint from an
// ordered chain of data sources, best source first, raw chain data last.
package holders

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"solana-mint-intel/internal/cache"
	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/layout"
	"solana-mint-intel/internal/market"
	"solana-mint-intel/internal/observability"
	"solana-mint-intel/internal/solana"
	"solana-mint-intel/internal/storage"
)

const (
	// TokenProgramID is the classic SPL token program.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	cacheKeyPrefix = "holder-analysis:v2:"
	cacheTTL       = 300 * time.Second

	topHolderLimit = 20
	// rawScanLimit caps the on-chain account scan. Mints with more token
	// accounts fall through to the basic RPC source instead of hauling
	// megabytes of account data.
	rawScanLimit = 15000

	sourceTimeout = 10 * time.Second
)

// RPCClient is the subset of the Solana RPC surface the aggregator needs.
type RPCClient interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetProgramAccounts(ctx context.Context, program string, opts *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error)
	GetTokenSupply(ctx context.Context, mint string) (*solana.TokenAmount, error)
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error)
}

// Analyzer aggregates holder distributions. All fields except RPC are
// optional; a missing source is skipped in the fallback chain.
type Analyzer struct {
	ranked    market.RankedHolderClient
	flags     market.FlagClient
	helius    RPCClient
	rpc       RPCClient
	snapshots storage.HolderSnapshotStore

	cache  *cache.Cache[*domain.HolderAnalysisResult]
	logger *log.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithRankedSource sets the ranked top-holders API client.
func WithRankedSource(c market.RankedHolderClient) AnalyzerOption {
	return func(a *Analyzer) { a.ranked = c }
}

// WithFlagSource sets the flag-enrichment API client.
func WithFlagSource(c market.FlagClient) AnalyzerOption {
	return func(a *Analyzer) { a.flags = c }
}

// WithHeliusRPC sets the enhanced RPC endpoint used before falling back to
// the basic one.
func WithHeliusRPC(c RPCClient) AnalyzerOption {
	return func(a *Analyzer) { a.helius = c }
}

// WithSnapshotStore enables append-only persistence of each fresh analysis.
func WithSnapshotStore(s storage.HolderSnapshotStore) AnalyzerOption {
	return func(a *Analyzer) { a.snapshots = s }
}

// WithLogger sets the analyzer logger.
func WithLogger(l *log.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates a holder analyzer backed by the given basic RPC
// client.
func NewAnalyzer(rpc RPCClient, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		rpc:    rpc,
		cache:  cache.New[*domain.HolderAnalysisResult](cache.WithTTL(cacheTTL)),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeHolders returns the holder distribution for a mint. It fails only
// on a malformed mint address; every upstream failure degrades to the next
// source in the chain, down to an empty basic-RPC result.
func (a *Analyzer) AnalyzeHolders(ctx context.Context, mint string) (*domain.HolderAnalysisResult, error) {
	if !layout.ValidAddress(mint) {
		return nil, fmt.Errorf("invalid mint address %q", mint)
	}

	key := cacheKeyPrefix + mint
	if cached, ok := a.cache.Get(key); ok {
		observability.RecordCacheHit("holders")
		return cached, nil
	}
	observability.RecordCacheMiss("holders")

	return a.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*domain.HolderAnalysisResult, error) {
		started := time.Now()
		result := a.analyze(ctx, mint)
		observability.RecordHolderAnalysis(string(result.Source), time.Since(started).Seconds())
		a.persistSnapshot(result)
		return result, nil
	})
}

// analyze walks the fallback chain and always produces a result.
func (a *Analyzer) analyze(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	type source struct {
		name       string
		configured bool
		run        func(context.Context, string) *domain.HolderAnalysisResult
	}

	sources := []source{
		{string(domain.SourceBirdeye), a.ranked != nil, a.fromRanked},
		{string(domain.SourceGMGN), a.flags != nil, a.fromFlags},
		{string(domain.SourceHelius), a.helius != nil, a.fromHelius},
		{"rawscan", true, a.fromRawScan},
	}

	for _, s := range sources {
		// An unconfigured source is not a failure, just absent.
		if !s.configured {
			continue
		}

		sctx, cancel := context.WithTimeout(ctx, sourceTimeout)
		result := s.run(sctx, mint)
		cancel()

		if result != nil && result.HolderCount > 0 {
			return a.finalize(result)
		}
		observability.RecordHolderSourceFailure(s.name)
	}

	sctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()
	return a.finalize(a.fromBasicRPC(sctx, mint))
}

func (a *Analyzer) fromRanked(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	if a.ranked == nil {
		return nil
	}

	ranking, err := a.ranked.TokenHolders(ctx, mint, topHolderLimit)
	if err != nil {
		a.logger.Printf("[holders] ranked source failed for %s: %v", mint, err)
		return nil
	}
	if ranking.TotalHolders == 0 || len(ranking.Holders) == 0 {
		return nil
	}

	records := make([]domain.HolderRecord, 0, len(ranking.Holders))
	for _, h := range ranking.Holders {
		records = append(records, domain.HolderRecord{
			Address: h.Address,
			Balance: h.UIAmount,
			Percent: h.Percent,
		})
	}

	return &domain.HolderAnalysisResult{
		Mint:        mint,
		HolderCount: ranking.TotalHolders,
		TopHolders:  records,
		Source:      domain.SourceBirdeye,
	}
}

func (a *Analyzer) fromFlags(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	if a.flags == nil {
		return nil
	}

	flagged, err := a.flags.TokenHolderFlags(ctx, mint, topHolderLimit)
	if err != nil {
		a.logger.Printf("[holders] flag source failed for %s: %v", mint, err)
		return nil
	}
	if flagged.HolderCount == 0 || len(flagged.Holders) == 0 {
		return nil
	}

	records := make([]domain.HolderRecord, 0, len(flagged.Holders))
	for _, h := range flagged.Holders {
		records = append(records, domain.HolderRecord{
			Address:   h.Address,
			Percent:   h.Percent,
			IsBundled: h.IsBundler,
			IsSniper:  h.IsSniper,
			IsInsider: h.IsInsider,
		})
	}

	return &domain.HolderAnalysisResult{
		Mint:        mint,
		HolderCount: flagged.HolderCount,
		TopHolders:  records,
		Source:      domain.SourceGMGN,
	}
}

func (a *Analyzer) fromHelius(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	if a.helius == nil {
		return nil
	}
	result := a.fromLargestAccounts(ctx, a.helius, mint)
	if result == nil {
		return nil
	}
	// getTokenLargestAccounts gives the top ~20 only; report that as a
	// lower-bound holder count.
	result.HolderCount = len(result.TopHolders)
	result.Source = domain.SourceHelius
	return result
}

// fromRawScan enumerates every token account of the mint on-chain and
// aggregates balances per owner.
func (a *Analyzer) fromRawScan(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	info, err := a.rpc.GetAccountInfo(ctx, mint)
	if err != nil || info == nil {
		a.logger.Printf("[holders] raw scan: mint account fetch failed for %s: %v", mint, err)
		return nil
	}

	mintAcc, err := layout.DecodeBase64MintAccount(info.Data)
	if err != nil {
		a.logger.Printf("[holders] raw scan: mint decode failed for %s: %v", mint, err)
		return nil
	}
	if mintAcc.Supply == 0 {
		return nil
	}

	accounts, err := a.rpc.GetProgramAccounts(ctx, TokenProgramID, &solana.ProgramAccountsOpts{
		Memcmp:    []solana.MemcmpFilter{{Offset: layout.TokenAccountMintOffset, Bytes: mint}},
		DataSlice: &solana.DataSlice{Offset: 0, Length: layout.TokenAccountSliceLen},
	})
	if err != nil {
		a.logger.Printf("[holders] raw scan failed for %s: %v", mint, err)
		return nil
	}
	if len(accounts) > rawScanLimit {
		a.logger.Printf("[holders] raw scan aborted for %s: %d accounts over limit", mint, len(accounts))
		return nil
	}

	byOwner := make(map[string]uint64)
	for _, acc := range accounts {
		ta, err := layout.DecodeBase64TokenAccount(acc.Account.Data)
		if err != nil {
			a.logger.Printf("[holders] raw scan: skip account %s: %v", acc.Pubkey, err)
			continue
		}
		if ta.Amount == 0 {
			continue
		}
		byOwner[ta.Owner] += ta.Amount
	}
	if len(byOwner) == 0 {
		return nil
	}

	divisor := pow10(int(mintAcc.Decimals))
	records := make([]domain.HolderRecord, 0, len(byOwner))
	for owner, amount := range byOwner {
		records = append(records, domain.HolderRecord{
			Address: owner,
			Balance: float64(amount) / divisor,
			Percent: float64(amount) / float64(mintAcc.Supply) * 100,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Balance > records[j].Balance
	})
	holderCount := len(records)
	if len(records) > topHolderLimit {
		records = records[:topHolderLimit]
	}

	return &domain.HolderAnalysisResult{
		Mint:        mint,
		HolderCount: holderCount,
		TopHolders:  records,
		Source:      domain.SourceRPC,
	}
}

// fromBasicRPC is the terminal source: top accounts only, holder count
// unknown.
func (a *Analyzer) fromBasicRPC(ctx context.Context, mint string) *domain.HolderAnalysisResult {
	result := a.fromLargestAccounts(ctx, a.rpc, mint)
	if result == nil {
		result = &domain.HolderAnalysisResult{Mint: mint}
	}
	result.HolderCount = 0
	result.Source = domain.SourceRPC
	return result
}

func (a *Analyzer) fromLargestAccounts(ctx context.Context, client RPCClient, mint string) *domain.HolderAnalysisResult {
	balances, err := client.GetTokenLargestAccounts(ctx, mint)
	if err != nil || len(balances) == 0 {
		if err != nil {
			a.logger.Printf("[holders] largest accounts failed for %s: %v", mint, err)
		}
		return nil
	}

	var supply uint64
	if s, err := client.GetTokenSupply(ctx, mint); err == nil && s != nil {
		supply, _ = strconv.ParseUint(s.Amount, 10, 64)
	}

	records := make([]domain.HolderRecord, 0, len(balances))
	for _, b := range balances {
		rec := domain.HolderRecord{
			Address: b.Address,
			Balance: b.UIAmount,
		}
		if supply > 0 {
			raw, err := strconv.ParseUint(b.Amount, 10, 64)
			if err == nil {
				rec.Percent = float64(raw) / float64(supply) * 100
			}
		}
		records = append(records, rec)
	}

	return &domain.HolderAnalysisResult{
		Mint:       mint,
		TopHolders: records,
	}
}

// finalize labels holders and fills the concentration aggregates.
func (a *Analyzer) finalize(result *domain.HolderAnalysisResult) *domain.HolderAnalysisResult {
	top10, exchange, lp := labelHolders(result.TopHolders)
	result.Top10Percent = top10
	result.ExchangePercent = exchange
	result.LPPercent = lp
	result.CapturedAt = time.Now().UTC()
	return result
}

// persistSnapshot appends an analytics row, best effort.
func (a *Analyzer) persistSnapshot(result *domain.HolderAnalysisResult) {
	if a.snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.snapshots.Insert(ctx, &domain.HolderSnapshot{
		Mint:            result.Mint,
		CapturedAt:      result.CapturedAt,
		HolderCount:     result.HolderCount,
		Top10Percent:    result.Top10Percent,
		ExchangePercent: result.ExchangePercent,
		LPPercent:       result.LPPercent,
		Source:          result.Source,
	})
	observability.RecordSnapshotWrite(err)
	if err != nil {
		a.logger.Printf("[holders] snapshot write failed for %s: %v", result.Mint, err)
	}
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
