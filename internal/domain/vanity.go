package domain

import "time"

// VanityMatchType selects where the pattern must appear in the base58
// public key.
type VanityMatchType string

// Supported match positions.
const (
	MatchPrefix   VanityMatchType = "prefix"
	MatchSuffix   VanityMatchType = "suffix"
	MatchContains VanityMatchType = "contains"
)

// VanityResult is the outcome of a successful vanity search. One-shot,
// never cached.
type VanityResult struct {
	// PublicKey is the base58-encoded public key.
	PublicKey string
	// SecretKey is the 64-byte ed25519 private key (seed || public key).
	SecretKey []byte
	Attempts  uint64
	Elapsed   time.Duration
}

// VanityDifficulty is a pure estimate of expected search cost.
type VanityDifficulty struct {
	// ExpectedAttempts approximates 58^len for prefix/suffix and
	// 58^len/len for contains.
	ExpectedAttempts float64
	// EstimatedSeconds projects ExpectedAttempts at a fixed reference
	// throughput.
	EstimatedSeconds float64
	// Human is a readable rendering of EstimatedSeconds.
	Human string
}
