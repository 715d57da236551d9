package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultDexScreenerBaseURL = "https://api.dexscreener.com"

// Pair is one trading pair from the pair index.
type Pair struct {
	PairAddress  string
	DexID        string
	BaseToken    string
	QuoteToken   string
	CreatedAtMs  int64
	LiquidityUSD float64
}

// PairIndexClient looks up the trading pairs a mint is listed on. Used to
// discover migrations that happened before the live detector started.
type PairIndexClient interface {
	TokenPairs(ctx context.Context, mint string) ([]Pair, error)
}

// DexScreenerOption configures a DexScreenerClient.
type DexScreenerOption func(*DexScreenerClient)

// WithDexScreenerBaseURL overrides the API base URL.
func WithDexScreenerBaseURL(baseURL string) DexScreenerOption {
	return func(c *DexScreenerClient) {
		c.baseURL = baseURL
	}
}

// WithDexScreenerHTTPClient sets a custom HTTP client.
func WithDexScreenerHTTPClient(client *http.Client) DexScreenerOption {
	return func(c *DexScreenerClient) {
		c.httpClient = client
	}
}

// DexScreenerClient implements PairIndexClient against the DexScreener API.
type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDexScreenerClient creates a pair-index client. No API key required.
func NewDexScreenerClient(opts ...DexScreenerOption) *DexScreenerClient {
	c := &DexScreenerClient{
		baseURL: defaultDexScreenerBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dexScreenerToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type dexScreenerPair struct {
	PairAddress string           `json:"pairAddress"`
	DexID       string           `json:"dexId"`
	BaseToken   dexScreenerToken `json:"baseToken"`
	QuoteToken  dexScreenerToken `json:"quoteToken"`
	CreatedAt   int64            `json:"pairCreatedAt"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

// TokenPairs fetches all indexed pairs for a mint. An unindexed mint
// returns an empty slice, not an error.
func (c *DexScreenerClient) TokenPairs(ctx context.Context, mint string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dexscreener status %d: %s", resp.StatusCode, string(body))
	}

	var parsed dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode dexscreener response: %w", err)
	}

	pairs := make([]Pair, 0, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		pairs = append(pairs, Pair{
			PairAddress:  p.PairAddress,
			DexID:        p.DexID,
			BaseToken:    p.BaseToken.Address,
			QuoteToken:   p.QuoteToken.Address,
			CreatedAtMs:  p.CreatedAt,
			LiquidityUSD: p.Liquidity.USD,
		})
	}
	return pairs, nil
}
