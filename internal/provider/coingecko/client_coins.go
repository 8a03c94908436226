package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
)

// CoinListEntry is one row of /coins/list.
type CoinListEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Coin is the subset of /coins/{id} the gateway reads.
type Coin struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	MarketData MarketData `json:"market_data"`
}

// MarketData holds prices keyed by lower-case currency code ("usd", "brl", ...).
type MarketData struct {
	CurrentPrice map[string]float64 `json:"current_price"`
}

// GetCoinsList retrieves every coin the API knows about.
func (c *CoinGeckoAPIClient) GetCoinsList(ctx context.Context, opts ...CoinGeckoAPIClientOption) ([]CoinListEntry, error) {
	override := c.clone(opts)

	var entries []CoinListEntry
	if err := override.getJSON(ctx, "/coins/list", maps.Clone(override.query), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetCoin retrieves a coin by its CoinGecko id.
func (c *CoinGeckoAPIClient) GetCoin(ctx context.Context, id string, opts ...CoinGeckoAPIClientOption) (*Coin, error) {
	override := c.clone(opts)

	query := maps.Clone(override.query)
	if query == nil {
		query = url.Values{}
	}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")

	var coin Coin
	if err := override.getJSON(ctx, "/coins/"+url.PathEscape(id), query, &coin); err != nil {
		return nil, err
	}
	return &coin, nil
}

func (c *CoinGeckoAPIClient) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return ErrRateLimited

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, string(b))
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
