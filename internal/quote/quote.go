package quote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ConsultedLayout is the wire layout of Quote.ConsultedAt.
const ConsultedLayout = "2006-01-02 15:04:05"

var ErrEmptySymbol = errors.New("symbol is required")

// Quote is the normalized shape returned by every quote provider and the
// value stored in the cache.
type Quote struct {
	CoinName           string    `json:"coin_name"`
	Symbol             string    `json:"symbol"`
	CoinPrice          float64   `json:"coin_price"`
	CoinPriceReference float64   `json:"coin_price_reference"`
	ConsultedAt        Timestamp `json:"consulted_at"`
}

// NeedsConversion reports whether the reference price still has to be
// derived from an FX rate. Only an exact zero counts.
func (q Quote) NeedsConversion() bool { return q.CoinPriceReference == 0.0 }

// Validate checks the invariants a quote must hold before it is cached.
func (q Quote) Validate() error {
	if q.Symbol == "" {
		return ErrEmptySymbol
	}
	if q.Symbol != strings.ToLower(q.Symbol) {
		return fmt.Errorf("symbol %q is not lower-case", q.Symbol)
	}
	for name, v := range map[string]float64{"coin_price": q.CoinPrice, "coin_price_reference": q.CoinPriceReference} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not a finite number", name)
		}
		if v < 0 {
			return fmt.Errorf("%s is negative: %v", name, v)
		}
	}
	return nil
}

// Marshal encodes q into its canonical cache form.
func Marshal(q Quote) ([]byte, error) {
	return json.Marshal(q)
}

// Unmarshal decodes the canonical cache form.
func Unmarshal(data []byte) (Quote, error) {
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, fmt.Errorf("decoding quote: %w", err)
	}
	return q, nil
}

// LookupRequest carries a normalized symbol. The symbol doubles as the cache key.
type LookupRequest struct {
	Symbol string `json:"symbol"`
}

func NewLookupRequest(symbol string) (LookupRequest, error) {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return LookupRequest{}, ErrEmptySymbol
	}
	return LookupRequest{Symbol: s}, nil
}

// Timestamp is a time.Time with a second-precision wire format.
type Timestamp struct {
	time.Time
}

// Now returns the current local time truncated to whole seconds.
func Now() Timestamp { return Timestamp{time.Now().Truncate(time.Second)} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(ConsultedLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("consulted_at: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if v, err := time.ParseInLocation(ConsultedLayout, s, time.Local); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("consulted_at: unsupported format %q", s)
	}
	t.Time = v
	return nil
}
