package holders

import (
	"solana-mint-intel/internal/domain"
	"solana-mint-intel/internal/layout"
)

// knownExchanges maps deposit/hot-wallet addresses of centralized exchanges
// to display labels.
var knownExchanges = map[string]string{
	"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9": "Binance",
	"2ojv9BAiHUrvsm9gxDe7fJSzbNZSJcxZvf8dqmWGHG8S": "Binance",
	"AC5RDfQFmDS1deWZos921JfqscXdByf8BKHs5ACWjtW2": "Bybit",
	"5VCwKtCXgCJ6kit5FybXjvriW3xELsFDhYrPSqtJNmcD": "OKX",
	"H8sMJSCQxfKiFTCfDR3DUMLPwcRbM61LGFJ8N4dK3WjS": "Coinbase",
	"GJRs4FwHtemZ5ZE9x3FNvJ8TMwitKTh21yxdRPqn7npE": "Coinbase",
	"ASTyfSima4LLAdDgoFGkgqoKowG1LZFDr9fAQrg7iaJZ": "MEXC",
	"AobVSwdW9BbpMdJvTqeCN4hPAmh4rHm7vwLnQ5ATSyrS": "Gate.io",
	"u6PJ8DtQuPFnfmwHbGFULQ4u4EgjDiyYKjVEsynXq2w":  "Kraken",
	"9un5wqE3q4oCjyrDkwsdD48KteCJitQX5978Vh7KKxHo": "KuCoin",
}

// knownAddresses maps protocol and infrastructure addresses to labels.
var knownAddresses = map[string]string{
	"5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1": "Raydium Authority V4",
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "Raydium AMM V4",
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P":  "pump.fun Bonding Curve",
	"39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg":  "pump.fun Migrator",
	"strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m":  "Streamflow",
	"LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn":  "Jupiter Lock",
	"So11111111111111111111111111111111111111112":  "Wrapped SOL",
}

// labelHolders attributes each record and returns concentration aggregates.
// Attribution order: exchange registry, known-address registry, percentage
// heuristics for unattributed giants.
func labelHolders(records []domain.HolderRecord) (top10, exchange, lp float64) {
	for i := range records {
		r := &records[i]

		if name, ok := knownExchanges[r.Address]; ok {
			r.Label = name
			r.IsExchange = true
		} else if name, ok := knownAddresses[r.Address]; ok {
			r.Label = name
			if name == "Raydium Authority V4" || name == "pump.fun Bonding Curve" {
				r.IsLP = true
			}
		} else if r.Percent > 90 {
			r.Label = "likely LP"
			r.IsLP = true
		} else if r.Percent > 50 {
			// An off-curve owner is a PDA: a program vault holding half
			// the supply is a pool, not a creator wallet.
			if layout.ValidAddress(r.Address) && !layout.IsOnCurve(r.Address) {
				r.Label = "likely LP"
				r.IsLP = true
			} else {
				r.Label = "likely creator/dev"
				r.IsCreator = true
			}
		}

		if i < 10 {
			top10 += r.Percent
		}
		if r.IsExchange {
			exchange += r.Percent
		}
		if r.IsLP {
			lp += r.Percent
		}
	}
	return top10, exchange, lp
}
