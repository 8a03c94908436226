package coingecko

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const baseURL = "https://api.coingecko.com/api/v3/"

var (
	// ErrNotFound is returned when the API answers 404 for a coin.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned on 429.
	ErrRateLimited = errors.New("rate limited")
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinGeckoAPIClient is a client for the CoinGecko API.
type CoinGeckoAPIClient struct {
	// baseURL is the base URL for the API, without a trailing slash.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// CoinGeckoAPIClientOption is a configuration option for the CoinGecko API client.
type CoinGeckoAPIClientOption func(*CoinGeckoAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) CoinGeckoAPIClientOption {
	return func(c *CoinGeckoAPIClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) CoinGeckoAPIClientOption {
	return func(c *CoinGeckoAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) CoinGeckoAPIClientOption {
	return func(c *CoinGeckoAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewCoinGeckoAPIClient creates a new CoinGecko API client. The key is
// optional; the public API works without one.
func NewCoinGeckoAPIClient(key string, options ...CoinGeckoAPIClientOption) (*CoinGeckoAPIClient, error) {
	var client = &CoinGeckoAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if key != "" {
		// https://docs.coingecko.com/reference/authentication
		client.header.Set("x-cg-demo-api-key", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

func (c *CoinGeckoAPIClient) clone(opts []CoinGeckoAPIClientOption) *CoinGeckoAPIClient {
	var override = &CoinGeckoAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}
	return override
}
