package awesomeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coingateway/internal/fx"
)

const (
	defaultBaseURL = "https://economia.awesomeapi.com.br/"
	// createDateLayout is the only accepted create_date layout.
	createDateLayout = "2006-01-02 15:04:05"
)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads the latest quote of a currency pair from AwesomeAPI.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	location   *time.Location
}

type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLocation sets the zone create_date is interpreted in. Default: Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

func New(options ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL, httpClient: http.DefaultClient, location: time.Local}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type apiRate struct {
	Code       string `json:"code"`
	CodeIn     string `json:"codein"`
	Name       string `json:"name"`
	High       string `json:"high"`
	Low        string `json:"low"`
	VarBid     string `json:"varBid"`
	PctChange  string `json:"pctChange"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
}

// Rate fetches GET {base}last/{pair}. Every failure is an *fx.Error.
func (c *Client) Rate(ctx context.Context, pair string) (fx.Rate, error) {
	r, err := c.rate(ctx, pair)
	if err != nil {
		return fx.Rate{}, &fx.Error{Pair: pair, Err: err}
	}
	return r, nil
}

func (c *Client) rate(ctx context.Context, pair string) (fx.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"last/"+url.PathEscape(pair), http.NoBody)
	if err != nil {
		return fx.Rate{}, fmt.Errorf("creating request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fx.Rate{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fx.Rate{}, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, string(b))
	}

	var body map[string]apiRate
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fx.Rate{}, fmt.Errorf("decoding response: %w", err)
	}
	raw, ok := body[fx.PairKey(pair)]
	if !ok {
		return fx.Rate{}, fmt.Errorf("pair %s missing from response", fx.PairKey(pair))
	}
	return c.convert(pair, raw)
}

func (c *Client) convert(pair string, raw apiRate) (fx.Rate, error) {
	out := fx.Rate{Pair: pair, Code: raw.Code, CodeIn: raw.CodeIn, Name: raw.Name}

	fields := []struct {
		name string
		in   string
		dst  *float64
		req  bool
	}{
		{"high", raw.High, &out.High, true},
		{"low", raw.Low, &out.Low, false},
		{"bid", raw.Bid, &out.Bid, false},
		{"ask", raw.Ask, &out.Ask, false},
		{"varBid", raw.VarBid, &out.VarBid, false},
		{"pctChange", raw.PctChange, &out.PctChange, false},
	}
	for _, f := range fields {
		if f.in == "" {
			if f.req {
				return fx.Rate{}, fmt.Errorf("%s is missing", f.name)
			}
			continue
		}
		v, err := strconv.ParseFloat(f.in, 64)
		if err != nil {
			return fx.Rate{}, fmt.Errorf("parsing %s %q: %w", f.name, f.in, err)
		}
		*f.dst = v
	}

	if raw.Timestamp != "" {
		sec, err := strconv.ParseInt(raw.Timestamp, 10, 64)
		if err != nil {
			return fx.Rate{}, fmt.Errorf("parsing timestamp %q: %w", raw.Timestamp, err)
		}
		out.Timestamp = time.Unix(sec, 0).UTC()
	}
	if raw.CreateDate != "" {
		t, err := time.ParseInLocation(createDateLayout, raw.CreateDate, c.location)
		if err != nil {
			return fx.Rate{}, fmt.Errorf("invalid create_date %q: %w", raw.CreateDate, err)
		}
		out.AsOf = t
	}
	return out, nil
}
