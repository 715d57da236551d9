package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGMGNBaseURL = "https://gmgn.ai"

// FlaggedHolder is one holder row from the flag-enrichment API. Percent is
// the share of supply; the booleans carry upstream behavioral
// classification.
type FlaggedHolder struct {
	Address   string
	Percent   float64
	IsBundler bool
	IsSniper  bool
	IsInsider bool
}

// FlaggedHolders is the flag-enrichment response for a mint.
type FlaggedHolders struct {
	// HolderCount is the mint's total holder count, 0 if unknown.
	HolderCount int
	Holders     []FlaggedHolder
}

// FlagClient serves holder lists enriched with bundler/sniper/insider
// flags.
type FlagClient interface {
	TokenHolderFlags(ctx context.Context, mint string, limit int) (*FlaggedHolders, error)
}

// GMGNOption configures a GMGNClient.
type GMGNOption func(*GMGNClient)

// WithGMGNBaseURL overrides the API base URL.
func WithGMGNBaseURL(baseURL string) GMGNOption {
	return func(c *GMGNClient) {
		c.baseURL = baseURL
	}
}

// WithGMGNHTTPClient sets a custom HTTP client.
func WithGMGNHTTPClient(client *http.Client) GMGNOption {
	return func(c *GMGNClient) {
		c.httpClient = client
	}
}

// GMGNClient implements FlagClient against the GMGN API.
type GMGNClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGMGNClient creates a flag-enrichment client.
func NewGMGNClient(opts ...GMGNOption) *GMGNClient {
	c := &GMGNClient{
		baseURL: defaultGMGNBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gmgnHolderItem struct {
	Address        string  `json:"address"`
	AmountPercent  float64 `json:"amount_percentage"`
	IsBundler      bool    `json:"is_bundler"`
	IsSniper       bool    `json:"is_sniper"`
	MaybeRatTrader bool    `json:"maybe_rat_trader"`
}

type gmgnHoldersResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		HolderCount int              `json:"holder_count"`
		Holders     []gmgnHolderItem `json:"holders"`
	} `json:"data"`
}

// TokenHolderFlags fetches flag-enriched top holders of a mint.
func (c *GMGNClient) TokenHolderFlags(ctx context.Context, mint string, limit int) (*FlaggedHolders, error) {
	if limit <= 0 {
		limit = 20
	}

	endpoint := fmt.Sprintf("%s/defi/quotation/v1/tokens/top_holders/sol/%s?limit=%d", c.baseURL, mint, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmgn request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gmgn status %d: %s", resp.StatusCode, string(body))
	}

	var parsed gmgnHoldersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode gmgn response: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("gmgn error code %d: %s", parsed.Code, parsed.Msg)
	}

	out := &FlaggedHolders{
		HolderCount: parsed.Data.HolderCount,
		Holders:     make([]FlaggedHolder, 0, len(parsed.Data.Holders)),
	}
	for _, h := range parsed.Data.Holders {
		out.Holders = append(out.Holders, FlaggedHolder{
			Address:   h.Address,
			Percent:   h.AmountPercent,
			IsBundler: h.IsBundler,
			IsSniper:  h.IsSniper,
			IsInsider: h.MaybeRatTrader,
		})
	}
	return out, nil
}
