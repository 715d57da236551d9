package locks

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"log"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/solana"
)

const testMint = "So11111111111111111111111111111111111111112"

type stubRPC struct {
	// accountsByProgram keys getProgramAccounts results by program ID.
	accountsByProgram map[string][]solana.ProgramAccount
	// infoByPubkey keys getAccountInfo results by address.
	infoByPubkey map[string]*solana.AccountInfo

	err       error
	infoCalls map[string]int
}

func (s *stubRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	if s.infoCalls == nil {
		s.infoCalls = make(map[string]int)
	}
	s.infoCalls[pubkey]++
	if s.err != nil {
		return nil, s.err
	}
	return s.infoByPubkey[pubkey], nil
}

func (s *stubRPC) GetProgramAccounts(ctx context.Context, program string, opts *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.accountsByProgram[program], nil
}

func quietLogger() *log.Logger {
	return log.New(discard{}, "", 0)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func buildTokenAccount(mintRaw, ownerRaw []byte, amount uint64) string {
	data := make([]byte, 80)
	copy(data[0:32], mintRaw)
	copy(data[32:64], ownerRaw)
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return base64.StdEncoding.EncodeToString(data)
}

func buildMintAccount(supply uint64, decimals byte) string {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	return base64.StdEncoding.EncodeToString(data)
}

func TestCheckTokenLocks_InvalidMint(t *testing.T) {
	d := NewDetector(&stubRPC{}, WithLogger(quietLogger()))

	_, err := d.CheckTokenLocks(context.Background(), "!!!")
	require.Error(t, err)
}

func TestCheckTokenLocks_DetectsStreamflowEscrow(t *testing.T) {
	mintRaw, err := base58.Decode(testMint)
	require.NoError(t, err)

	escrowOwner := make([]byte, 32)
	escrowOwner[0] = 7
	escrowOwnerAddr := base58.Encode(escrowOwner)

	walletOwner := make([]byte, 32)
	walletOwner[0] = 9
	walletOwnerAddr := base58.Encode(walletOwner)

	rpc := &stubRPC{
		infoByPubkey: map[string]*solana.AccountInfo{
			testMint:        {Data: buildMintAccount(1_000_000, 6)},
			escrowOwnerAddr: {Owner: StreamflowProgramID},
			walletOwnerAddr: {Owner: "11111111111111111111111111111111"},
		},
		accountsByProgram: map[string][]solana.ProgramAccount{
			TokenProgramID: {
				{Pubkey: "escrow-ta", Account: solana.AccountInfo{Data: buildTokenAccount(mintRaw, escrowOwner, 250_000)}},
				{Pubkey: "wallet-ta", Account: solana.AccountInfo{Data: buildTokenAccount(mintRaw, walletOwner, 750_000)}},
			},
		},
	}

	d := NewDetector(rpc, WithLogger(quietLogger()))

	status, err := d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err)

	assert.True(t, status.IsLocked)
	require.Len(t, status.Locks, 1)
	assert.Equal(t, domain.LockStreamflow, status.Locks[0].Protocol)
	assert.Equal(t, "escrow-ta", status.Locks[0].LockAccount)
	assert.InDelta(t, 0.25, status.Locks[0].Amount, 1e-9)
	assert.InDelta(t, 25.0, status.TotalLockedPercent, 1e-6)
}

func TestCheckTokenLocks_ScansToken2022(t *testing.T) {
	mintRaw, err := base58.Decode(testMint)
	require.NoError(t, err)

	escrowOwner := make([]byte, 32)
	escrowOwner[0] = 3
	escrowOwnerAddr := base58.Encode(escrowOwner)

	rpc := &stubRPC{
		infoByPubkey: map[string]*solana.AccountInfo{
			testMint:        {Data: buildMintAccount(1_000, 0)},
			escrowOwnerAddr: {Owner: JupiterLockProgramID},
		},
		accountsByProgram: map[string][]solana.ProgramAccount{
			Token2022ProgramID: {
				{Pubkey: "t22-ta", Account: solana.AccountInfo{Data: buildTokenAccount(mintRaw, escrowOwner, 500)}},
			},
		},
	}

	d := NewDetector(rpc, WithLogger(quietLogger()))

	status, err := d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err)

	require.Len(t, status.Locks, 1)
	assert.Equal(t, domain.LockJupiter, status.Locks[0].Protocol)
	assert.InDelta(t, 50.0, status.TotalLockedPercent, 1e-6)
}

func TestCheckTokenLocks_UpstreamFailureMeansUnlocked(t *testing.T) {
	rpc := &stubRPC{err: errors.New("rpc down")}

	d := NewDetector(rpc, WithLogger(quietLogger()))

	status, err := d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err, "upstream failures must degrade to unlocked")
	assert.False(t, status.IsLocked)
	assert.Zero(t, status.TotalLockedAmount)
	assert.Zero(t, status.TotalLockedPercent)
	assert.Empty(t, status.Locks)
}

func TestCheckTokenLocks_MemoizesOwnerLookups(t *testing.T) {
	mintRaw, err := base58.Decode(testMint)
	require.NoError(t, err)

	owner := make([]byte, 32)
	owner[0] = 5
	ownerAddr := base58.Encode(owner)

	rpc := &stubRPC{
		infoByPubkey: map[string]*solana.AccountInfo{
			testMint:  {Data: buildMintAccount(1_000, 0)},
			ownerAddr: {Owner: StreamflowProgramID},
		},
		accountsByProgram: map[string][]solana.ProgramAccount{
			TokenProgramID: {
				{Pubkey: "ta1", Account: solana.AccountInfo{Data: buildTokenAccount(mintRaw, owner, 100)}},
				{Pubkey: "ta2", Account: solana.AccountInfo{Data: buildTokenAccount(mintRaw, owner, 200)}},
			},
		},
	}

	d := NewDetector(rpc, WithLogger(quietLogger()))

	status, err := d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err)

	assert.Len(t, status.Locks, 2)
	assert.Equal(t, 1, rpc.infoCalls[ownerAddr], "same owner must be resolved once")
}

func TestCheckTokenLocks_CachesResult(t *testing.T) {
	rpc := &stubRPC{
		infoByPubkey: map[string]*solana.AccountInfo{
			testMint: {Data: buildMintAccount(1_000, 0)},
		},
	}

	d := NewDetector(rpc, WithLogger(quietLogger()))

	_, err := d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err)
	_, err = d.CheckTokenLocks(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, 1, rpc.infoCalls[testMint], "second check within TTL must come from cache")
}
