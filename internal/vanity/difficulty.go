package vanity

import (
	"fmt"
	"math"

	"solana-mint-intel/internal/domain"
)

// referenceRate is the assumed keygen throughput for time projections, in
// attempts per second on one core.
const referenceRate = 100_000

// EstimateDifficulty projects the expected cost of a vanity search. Pure,
// no I/O.
func EstimateDifficulty(pattern string, match domain.VanityMatchType) domain.VanityDifficulty {
	n := float64(len(pattern))
	expected := math.Pow(58, n)
	if match == domain.MatchContains && n > 0 {
		// A contains pattern can start at roughly len positions of a
		// 44-character key, cutting the search space accordingly.
		expected /= n
	}

	seconds := expected / referenceRate
	return domain.VanityDifficulty{
		ExpectedAttempts: expected,
		EstimatedSeconds: seconds,
		Human:            humanDuration(seconds),
	}
}

func humanDuration(seconds float64) string {
	switch {
	case seconds < 1:
		return "under a second"
	case seconds < 60:
		return fmt.Sprintf("~%.0f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("~%.1f minutes", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("~%.1f hours", seconds/3600)
	case seconds < 365*86400:
		return fmt.Sprintf("~%.1f days", seconds/86400)
	default:
		years := seconds / (365 * 86400)
		if years > 1e6 {
			return "effectively forever"
		}
		return fmt.Sprintf("~%.1f years", years)
	}
}
