package migration

import (
	"fmt"
	"strconv"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/solana"
)

// On-chain program and token addresses involved in pump.fun migrations.
const (
	RaydiumAMMV4ProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PumpFunProgramID      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	PumpFunMigratorID     = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"
	WrappedSOLMint        = "So11111111111111111111111111111111111111112"
)

// lpAccountIndex is the position of the new pool (LP) account within the
// Raydium AMM initialize instruction's account list.
const lpAccountIndex = 4

// minInitializeAccounts is the smallest account list an AMM initialize
// instruction carries.
const minInitializeAccounts = 10

// decodeMigration extracts a MigrationEvent from a candidate transaction.
// Returns an error when the transaction is not a decodable Raydium pool
// initialization.
func decodeMigration(tx *solana.Transaction) (*domain.MigrationEvent, error) {
	if tx == nil || tx.Message == nil || tx.Meta == nil {
		return nil, fmt.Errorf("transaction incomplete")
	}
	if tx.Meta.Err != nil {
		return nil, fmt.Errorf("transaction failed on chain")
	}

	instr, err := findInitializeInstruction(tx.Message)
	if err != nil {
		return nil, err
	}

	pool, err := accountAt(tx.Message, instr, lpAccountIndex)
	if err != nil {
		return nil, err
	}

	mint, err := resolveMigratedMint(tx.Meta)
	if err != nil {
		return nil, err
	}

	event := &domain.MigrationEvent{
		Mint:        mint,
		Pool:        pool,
		TxSignature: tx.Signature,
		BlockTime:   tx.BlockTime,
		Slot:        tx.Slot,
	}
	event.InitialTokenAmount, event.InitialQuoteAmount = initialReserves(tx.Meta, mint)
	return event, nil
}

// findInitializeInstruction locates the Raydium AMM initialize instruction:
// the first instruction targeting the AMM program with a full account list.
func findInitializeInstruction(msg *solana.TransactionMessage) (*solana.CompiledInstruction, error) {
	for i := range msg.Instructions {
		instr := &msg.Instructions[i]
		if instr.ProgramIDIndex < 0 || instr.ProgramIDIndex >= len(msg.AccountKeys) {
			continue
		}
		if msg.AccountKeys[instr.ProgramIDIndex] != RaydiumAMMV4ProgramID {
			continue
		}
		if len(instr.Accounts) < minInitializeAccounts {
			continue
		}
		return instr, nil
	}
	return nil, fmt.Errorf("no AMM initialize instruction")
}

// accountAt resolves instruction account position pos to an address.
func accountAt(msg *solana.TransactionMessage, instr *solana.CompiledInstruction, pos int) (string, error) {
	if pos >= len(instr.Accounts) {
		return "", fmt.Errorf("instruction has %d accounts, need position %d", len(instr.Accounts), pos)
	}
	keyIndex := instr.Accounts[pos]
	if keyIndex < 0 || keyIndex >= len(msg.AccountKeys) {
		return "", fmt.Errorf("account index %d out of range", keyIndex)
	}
	return msg.AccountKeys[keyIndex], nil
}

// resolveMigratedMint identifies the migrating token. A migration moves a
// mint into a brand-new pool, so the mint appears in post token balances
// but not in pre balances. WSOL is the quote side and never the answer.
func resolveMigratedMint(meta *solana.TransactionMeta) (string, error) {
	preMints := make(map[string]bool)
	for _, b := range meta.PreTokenBalances {
		preMints[b.Mint] = true
	}

	for _, b := range meta.PostTokenBalances {
		if b.Mint == WrappedSOLMint {
			continue
		}
		if !preMints[b.Mint] {
			return b.Mint, nil
		}
	}

	// Fallback: the most frequent non-native mint across post balances.
	counts := make(map[string]int)
	var best string
	var bestCount int
	for _, b := range meta.PostTokenBalances {
		if b.Mint == WrappedSOLMint {
			continue
		}
		counts[b.Mint]++
		if counts[b.Mint] > bestCount {
			best = b.Mint
			bestCount = counts[b.Mint]
		}
	}
	if best == "" {
		return "", fmt.Errorf("no non-native mint in post balances")
	}
	return best, nil
}

// initialReserves reads the largest post-transaction balances of the token
// and quote sides as the initial pool reserves. Zero when unreadable.
func initialReserves(meta *solana.TransactionMeta, mint string) (token, quote uint64) {
	for _, b := range meta.PostTokenBalances {
		raw, err := strconv.ParseUint(b.Amount.Amount, 10, 64)
		if err != nil {
			continue
		}
		switch b.Mint {
		case mint:
			if raw > token {
				token = raw
			}
		case WrappedSOLMint:
			if raw > quote {
				quote = raw
			}
		}
	}
	return token, quote
}
