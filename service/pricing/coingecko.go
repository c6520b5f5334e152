// Package pricing resolves historical USD unit prices for the tracked token.
// Lookups are day-granular: two movements on the same calendar day always
// resolve to the same price.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Lookup resolves a historical unit price for the tracked asset at a given
// timestamp. Implementations return an error when the price cannot be
// resolved; callers degrade to an unresolved (zero) price and proceed.
type Lookup interface {
	PriceAt(ctx context.Context, timestampMillis int64) (float64, error)
}

// CoinGeckoClient resolves prices from the CoinGecko coin-history endpoint,
// keyed by calendar date. Results are cached per day so repeated lookups for
// movements on the same day cost at most one HTTP call.
type CoinGeckoClient struct {
	baseURL string
	coinID  string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]float64 // date (dd-mm-yyyy) -> USD price
}

// NewCoinGeckoClient creates a price lookup client for the given coin ID
// (e.g. "popcat").
func NewCoinGeckoClient(baseURL, coinID string, logger *slog.Logger) *CoinGeckoClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoinGeckoClient{
		baseURL: baseURL,
		coinID:  coinID,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		cache:   make(map[string]float64),
	}
}

// historyResponse is the subset of the coin-history payload we read.
type historyResponse struct {
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// PriceAt resolves the USD price for the calendar day containing the
// timestamp.
func (c *CoinGeckoClient) PriceAt(ctx context.Context, timestampMillis int64) (float64, error) {
	date := time.UnixMilli(timestampMillis).UTC().Format("02-01-2006")

	c.mu.Lock()
	if price, ok := c.cache[date]; ok {
		c.mu.Unlock()
		return price, nil
	}
	c.mu.Unlock()

	u := fmt.Sprintf("%s/api/v3/coins/%s/history?date=%s", c.baseURL, url.PathEscape(c.coinID), date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch price for %s: unexpected status %d", date, resp.StatusCode)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response for %s: %w", date, err)
	}

	if body.MarketData == nil {
		return 0, fmt.Errorf("no market data for %s on %s", c.coinID, date)
	}
	price, ok := body.MarketData.CurrentPrice["usd"]
	if !ok {
		return 0, fmt.Errorf("no usd price for %s on %s", c.coinID, date)
	}

	c.mu.Lock()
	c.cache[date] = price
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "resolved historical price",
		"coin", c.coinID,
		"date", date,
		"usd", price,
	)

	return price, nil
}
