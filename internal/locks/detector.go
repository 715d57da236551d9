// Package locks detects token supply held by vesting and lock programs.
//
// Detection walks every token account of the mint and checks whether the
// account's owner is itself owned by a known lock program. Escrow accounts
// created by Streamflow and Jupiter Lock are program-derived, so this
// one-hop ownership check catches the common custody layouts.
package locks

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-mint-intel/internal/cache"
	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/layout"
	"solana-mint-intel/internal/observability"
	"solana-mint-intel/internal/solana"
)

// Token programs whose accounts are enumerated.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Known lock program IDs.
const (
	StreamflowProgramID  = "strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m"
	JupiterLockProgramID = "LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn"
)

const (
	cacheKeyPrefix = "token-locks:"
	cacheTTL       = 3600 * time.Second

	checkTimeout = 10 * time.Second
)

var lockPrograms = map[string]domain.LockProtocol{
	StreamflowProgramID:  domain.LockStreamflow,
	JupiterLockProgramID: domain.LockJupiter,
}

// RPCClient is the RPC subset the lock detector needs.
type RPCClient interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetProgramAccounts(ctx context.Context, program string, opts *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error)
}

// Detector checks how much of a mint's supply sits in lock programs.
type Detector struct {
	rpc    RPCClient
	cache  *cache.Cache[*domain.TokenLockStatus]
	logger *log.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l *log.Logger) DetectorOption {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a lock detector.
func NewDetector(rpc RPCClient, opts ...DetectorOption) *Detector {
	d := &Detector{
		rpc:    rpc,
		cache:  cache.New[*domain.TokenLockStatus](cache.WithTTL(cacheTTL)),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckTokenLocks reports the locked share of a mint's supply. It fails
// only on a malformed mint; any upstream failure degrades to an all-zero
// unlocked status.
func (d *Detector) CheckTokenLocks(ctx context.Context, mint string) (*domain.TokenLockStatus, error) {
	if !layout.ValidAddress(mint) {
		return nil, fmt.Errorf("invalid mint address %q", mint)
	}

	key := cacheKeyPrefix + mint
	if cached, ok := d.cache.Get(key); ok {
		observability.RecordCacheHit("locks")
		return cached, nil
	}
	observability.RecordCacheMiss("locks")

	return d.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*domain.TokenLockStatus, error) {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()

		status := d.check(cctx, mint)
		if status.IsLocked {
			observability.RecordLockCheck("locked")
		} else {
			observability.RecordLockCheck("unlocked")
		}
		return status, nil
	})
}

func (d *Detector) check(ctx context.Context, mint string) *domain.TokenLockStatus {
	status := &domain.TokenLockStatus{
		Mint:       mint,
		CapturedAt: time.Now().UTC(),
	}

	supply, decimals, ok := d.mintSupply(ctx, mint)
	if !ok || supply == 0 {
		return status
	}
	divisor := pow10(int(decimals))

	// Owner lookups are memoized; large mints repeat owners heavily.
	ownerPrograms := make(map[string]string)

	for _, program := range []string{TokenProgramID, Token2022ProgramID} {
		accounts, err := d.rpc.GetProgramAccounts(ctx, program, &solana.ProgramAccountsOpts{
			Memcmp:    []solana.MemcmpFilter{{Offset: layout.TokenAccountMintOffset, Bytes: mint}},
			DataSlice: &solana.DataSlice{Offset: 0, Length: layout.TokenAccountSliceLen},
		})
		if err != nil {
			d.logger.Printf("[locks] account scan failed for %s on %s: %v", mint, program, err)
			continue
		}

		for _, acc := range accounts {
			ta, err := layout.DecodeBase64TokenAccount(acc.Account.Data)
			if err != nil || ta.Amount == 0 {
				continue
			}

			owningProgram, cached := ownerPrograms[ta.Owner]
			if !cached {
				owningProgram = d.resolveOwnerProgram(ctx, ta.Owner)
				ownerPrograms[ta.Owner] = owningProgram
			}

			protocol, locked := lockPrograms[owningProgram]
			if !locked {
				continue
			}

			amount := float64(ta.Amount) / divisor
			percent := float64(ta.Amount) / float64(supply) * 100
			status.Locks = append(status.Locks, domain.LockInfo{
				Protocol:    protocol,
				LockAccount: acc.Pubkey,
				Amount:      amount,
				Percent:     percent,
				IsLocked:    true,
			})
			status.TotalLockedAmount += amount
			status.TotalLockedPercent += percent
		}
	}

	status.IsLocked = len(status.Locks) > 0
	return status
}

// mintSupply reads supply and decimals straight from the raw mint account,
// one round trip instead of getTokenSupply plus getAccountInfo.
func (d *Detector) mintSupply(ctx context.Context, mint string) (uint64, uint8, bool) {
	info, err := d.rpc.GetAccountInfo(ctx, mint)
	if err != nil || info == nil {
		d.logger.Printf("[locks] mint account fetch failed for %s: %v", mint, err)
		return 0, 0, false
	}
	acc, err := layout.DecodeBase64MintAccount(info.Data)
	if err != nil {
		d.logger.Printf("[locks] mint decode failed for %s: %v", mint, err)
		return 0, 0, false
	}
	return acc.Supply, acc.Decimals, true
}

// resolveOwnerProgram returns the program owning the given account, empty
// when the lookup fails.
func (d *Detector) resolveOwnerProgram(ctx context.Context, owner string) string {
	info, err := d.rpc.GetAccountInfo(ctx, owner)
	if err != nil || info == nil {
		return ""
	}
	return info.Owner
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
