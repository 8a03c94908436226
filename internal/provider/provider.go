package provider

import (
	"context"
	"errors"
	"fmt"

	"coingateway/internal/quote"
)

// ErrUnknownSymbol is returned when an upstream has no data for a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Provider resolves a single symbol into a normalized quote. Implementations
// set CoinPriceReference to 0.0 when they cannot price in the reference
// currency themselves.
//
//go:generate mockgen -package=lookup_test -destination=../lookup/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Name() string
	FetchBySymbol(ctx context.Context, symbol string) (quote.Quote, error)
}

// Error is the uniform "provider failed for this symbol" signal.
type Error struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s symbol=%s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(provider, symbol string, err error) error {
	return &Error{Provider: provider, Symbol: symbol, Err: err}
}

// Result is the outcome of one provider attempt.
type Result struct {
	Provider string
	Quote    quote.Quote
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Attempt calls p and folds the outcome into a Result. Errors that are not
// already provider errors get wrapped so callers see one failure shape.
func Attempt(ctx context.Context, p Provider, symbol string) Result {
	q, err := p.FetchBySymbol(ctx, symbol)
	if err != nil {
		var perr *Error
		if !errors.As(err, &perr) {
			err = NewError(p.Name(), symbol, err)
		}
		return Result{Provider: p.Name(), Err: err}
	}
	return Result{Provider: p.Name(), Quote: q}
}
