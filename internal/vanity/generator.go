// Package vanity brute-forces ed25519 keypairs whose base58 public key
// matches a pattern.
package vanity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"solana-mint-intel/internal/domain"
)

// base58Alphabet is the bitcoin-style alphabet Solana addresses use. No
// 0, O, I or l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// progressEvery is how many attempts pass between progress callbacks.
const progressEvery = 10_000

// Options configures one vanity search.
type Options struct {
	Pattern string
	Match   domain.VanityMatchType
	// CaseSensitive matches the pattern exactly; otherwise both sides are
	// lowercased first.
	CaseSensitive bool
	// MaxAttempts bounds the search. Zero means no budget: the call
	// returns nil immediately.
	MaxAttempts uint64
}

// Progress reports search progress to the caller.
type Progress struct {
	Attempts uint64
	Elapsed  time.Duration
}

// Generate searches for a keypair matching opts. Returns nil without error
// when the attempt budget runs out; the only error causes are an invalid
// pattern and context cancellation. Callers impose wall-clock limits by
// passing a deadline context.
func Generate(ctx context.Context, opts Options, onProgress func(Progress)) (*domain.VanityResult, error) {
	if err := validatePattern(opts.Pattern); err != nil {
		return nil, err
	}
	switch opts.Match {
	case domain.MatchPrefix, domain.MatchSuffix, domain.MatchContains:
	default:
		return nil, fmt.Errorf("unknown match type %q", opts.Match)
	}

	pattern := opts.Pattern
	if !opts.CaseSensitive {
		pattern = strings.ToLower(pattern)
	}

	started := time.Now()
	var attempts uint64

	for attempts < opts.MaxAttempts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		attempts++

		encoded := base58.Encode(pub)
		candidate := encoded
		if !opts.CaseSensitive {
			candidate = strings.ToLower(encoded)
		}

		if matches(candidate, pattern, opts.Match) {
			return &domain.VanityResult{
				PublicKey: encoded,
				SecretKey: priv,
				Attempts:  attempts,
				Elapsed:   time.Since(started),
			}, nil
		}

		if onProgress != nil && attempts%progressEvery == 0 {
			onProgress(Progress{Attempts: attempts, Elapsed: time.Since(started)})
		}
	}

	return nil, nil
}

func matches(candidate, pattern string, match domain.VanityMatchType) bool {
	switch match {
	case domain.MatchPrefix:
		return strings.HasPrefix(candidate, pattern)
	case domain.MatchSuffix:
		return strings.HasSuffix(candidate, pattern)
	default:
		return strings.Contains(candidate, pattern)
	}
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	for _, r := range pattern {
		if !strings.ContainsRune(base58Alphabet, r) {
			return fmt.Errorf("pattern character %q is not in the base58 alphabet", r)
		}
	}
	return nil
}
