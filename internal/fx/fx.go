package fx

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultPair is the rate used to price BRL quotes in USD.
const DefaultPair = "USD-BRL"

// Rate is one exchange-rate snapshot for a currency pair.
type Rate struct {
	Pair      string
	Code      string
	CodeIn    string
	Name      string
	High      float64
	Low       float64
	Bid       float64
	Ask       float64
	VarBid    float64
	PctChange float64
	// Timestamp is the upstream quote time, AsOf its human-readable creation date.
	Timestamp time.Time
	AsOf      time.Time
}

// Provider fetches exchange rates.
//
//go:generate mockgen -package=lookup_test -destination=../lookup/mock_fx_test.go -source=fx.go -mock_names=Provider=MockFxProvider Provider
type Provider interface {
	Rate(ctx context.Context, pair string) (Rate, error)
}

// PairKey turns "USD-BRL" into the "USDBRL" key the upstream body uses.
func PairKey(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "-", ""))
}

// Error is returned for any failure while fetching a rate.
type Error struct {
	Pair string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("fx %s: %v", e.Pair, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
