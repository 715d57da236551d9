// Package market contains thin HTTP clients for third-party token data
// APIs: ranked holders, holder flag enrichment and the trading pair index.
// Each client is an interface plus one HTTP implementation so the analysis
// services can be tested against stubs.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBirdeyeBaseURL = "https://public-api.birdeye.so"

// RankedHolder is one holder row from the ranked top-holders API, with the
// percentage of supply already computed upstream.
type RankedHolder struct {
	Address  string
	Amount   string
	UIAmount float64
	Percent  float64
}

// HolderRanking is the ranked top-holders response for a mint.
type HolderRanking struct {
	// TotalHolders is the total number of holders, 0 if the API did not
	// report one.
	TotalHolders int
	Holders      []RankedHolder
}

// RankedHolderClient serves ranked top-holder lists with pre-computed
// supply percentages.
type RankedHolderClient interface {
	TokenHolders(ctx context.Context, mint string, limit int) (*HolderRanking, error)
}

// BirdeyeOption configures a BirdeyeClient.
type BirdeyeOption func(*BirdeyeClient)

// WithBirdeyeBaseURL overrides the API base URL.
func WithBirdeyeBaseURL(baseURL string) BirdeyeOption {
	return func(c *BirdeyeClient) {
		c.baseURL = baseURL
	}
}

// WithBirdeyeHTTPClient sets a custom HTTP client.
func WithBirdeyeHTTPClient(client *http.Client) BirdeyeOption {
	return func(c *BirdeyeClient) {
		c.httpClient = client
	}
}

// BirdeyeClient implements RankedHolderClient against the Birdeye API.
type BirdeyeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBirdeyeClient creates a ranked-holders client. The API key goes out in
// the X-API-KEY header on every request.
func NewBirdeyeClient(apiKey string, opts ...BirdeyeOption) *BirdeyeClient {
	c := &BirdeyeClient{
		baseURL: defaultBirdeyeBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type birdeyeHolderItem struct {
	Owner        string  `json:"owner"`
	Amount       string  `json:"amount"`
	UIAmount     float64 `json:"ui_amount"`
	Percentage   float64 `json:"percentage"`
	TokenAccount string  `json:"token_account"`
}

type birdeyeHoldersResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TotalHolders int                 `json:"total"`
		Items        []birdeyeHolderItem `json:"items"`
	} `json:"data"`
}

// TokenHolders fetches the top holders of a mint, ordered by balance.
func (c *BirdeyeClient) TokenHolders(ctx context.Context, mint string, limit int) (*HolderRanking, error) {
	if limit <= 0 {
		limit = 20
	}

	q := url.Values{}
	q.Set("address", mint)
	q.Set("offset", "0")
	q.Set("limit", fmt.Sprintf("%d", limit))

	endpoint := c.baseURL + "/defi/v3/token/holder?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("x-chain", "solana")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("birdeye request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("birdeye status %d: %s", resp.StatusCode, string(body))
	}

	var parsed birdeyeHoldersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode birdeye response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("birdeye returned success=false for %s", mint)
	}

	ranking := &HolderRanking{
		TotalHolders: parsed.Data.TotalHolders,
		Holders:      make([]RankedHolder, 0, len(parsed.Data.Items)),
	}
	for _, item := range parsed.Data.Items {
		ranking.Holders = append(ranking.Holders, RankedHolder{
			Address:  item.Owner,
			Amount:   item.Amount,
			UIAmount: item.UIAmount,
			Percent:  item.Percentage,
		})
	}
	return ranking, nil
}
