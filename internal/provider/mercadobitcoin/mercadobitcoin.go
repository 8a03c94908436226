package mercadobitcoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"coingateway/internal/provider"
	"coingateway/internal/quote"
)

const defaultBaseURL = "https://store.mercadobitcoin.com.br/api/v1/"

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Name    string
	BaseURL string // ends with "/", default: the public store API
	Headers map[string]string
	// Limit, Order and Sort are forwarded as query parameters.
	Limit int
	Order string
	Sort  string
}

// Provider queries the Mercado Bitcoin store by symbol. The store prices in
// BRL only, so every quote it returns needs FX conversion.
type Provider struct {
	cfg    Config
	client HTTPClient
}

func New(cfg Config, hc HTTPClient) *Provider {
	if cfg.Name == "" {
		cfg.Name = "MercadoBitcoin"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Order == "" {
		cfg.Order = "desc"
	}
	if cfg.Sort == "" {
		cfg.Sort = "release_date"
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) FetchBySymbol(ctx context.Context, symbol string) (quote.Quote, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(p.cfg.Limit))
	q.Set("offset", "0")
	q.Set("order", p.cfg.Order)
	q.Set("sort", p.cfg.Sort)
	u := p.cfg.BaseURL + "marketplace/product/unlogged?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return quote.Quote{}, provider.NewError(p.cfg.Name, symbol, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return quote.Quote{}, provider.NewError(p.cfg.Name, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return quote.Quote{}, provider.NewError(p.cfg.Name, symbol,
			fmt.Errorf("GET %s -> %d: %s", req.URL.Path, resp.StatusCode, string(b)))
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return quote.Quote{}, provider.NewError(p.cfg.Name, symbol, fmt.Errorf("decode: %w", err))
	}
	if len(api.ResponseData.Products) == 0 {
		return quote.Quote{}, provider.NewError(p.cfg.Name, symbol, provider.ErrUnknownSymbol)
	}

	first := api.ResponseData.Products[0]
	return quote.Quote{
		CoinName:           first.Name,
		Symbol:             symbol,
		CoinPrice:          float64(first.MarketPrice),
		CoinPriceReference: 0.0,
		ConsultedAt:        quote.Now(),
	}, nil
}

type apiResponse struct {
	ResponseData struct {
		Products []product `json:"products"`
	} `json:"response_data"`
}

type product struct {
	Name        string    `json:"name"`
	MarketPrice flexFloat `json:"market_price"`
}

// flexFloat accepts both JSON numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("market_price %s: %w", string(b), err)
	}
	*f = flexFloat(v)
	return nil
}
