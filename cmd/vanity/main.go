// Package main provides a CLI for the vanity keypair generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mr-tron/base58"

	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/vanity"
)

func main() {
	pattern := flag.String("pattern", "", "Base58 pattern to search for (required)")
	match := flag.String("match", "prefix", "Match position: prefix, suffix, contains")
	caseSensitive := flag.Bool("case-sensitive", false, "Match case-sensitively")
	maxAttempts := flag.Uint64("max-attempts", 10_000_000, "Attempt budget (0 exits immediately)")
	timeout := flag.Duration("timeout", 0, "Wall-clock limit, 0 for none")
	showSecret := flag.Bool("show-secret", false, "Print the base58-encoded secret key")

	flag.Parse()

	logger := log.New(os.Stderr, "[vanity] ", log.LstdFlags)

	if *pattern == "" {
		logger.Fatal("--pattern is required")
	}

	matchType := domain.VanityMatchType(*match)
	switch matchType {
	case domain.MatchPrefix, domain.MatchSuffix, domain.MatchContains:
	default:
		logger.Fatalf("Unknown match type %q (want prefix, suffix or contains)", *match)
	}

	difficulty := vanity.EstimateDifficulty(*pattern, matchType)
	logger.Printf("Expected attempts: %.0f (~%s at reference throughput)",
		difficulty.ExpectedAttempts, difficulty.Human)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := vanity.Generate(ctx, vanity.Options{
		Pattern:       *pattern,
		Match:         matchType,
		CaseSensitive: *caseSensitive,
		MaxAttempts:   *maxAttempts,
	}, func(p vanity.Progress) {
		rate := float64(p.Attempts) / p.Elapsed.Seconds()
		logger.Printf("Searching... attempts=%d elapsed=%s rate=%.0f/s", p.Attempts, p.Elapsed.Round(time.Second), rate)
	})
	if err != nil {
		logger.Fatalf("Search failed: %v", err)
	}
	if result == nil {
		logger.Fatalf("No match within %d attempts (%s elapsed)", *maxAttempts, time.Since(start).Round(time.Millisecond))
	}

	logger.Printf("Found after %d attempts in %s", result.Attempts, result.Elapsed.Round(time.Millisecond))
	fmt.Printf("public key: %s\n", result.PublicKey)
	if *showSecret {
		fmt.Printf("secret key: %s\n", base58.Encode(result.SecretKey))
	} else {
		fmt.Println("secret key: hidden (pass --show-secret to print)")
	}
}
