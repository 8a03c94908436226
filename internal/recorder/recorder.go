package recorder

import (
	"context"
	"time"
)

// Entry is one successful lookup.
type Entry struct {
	Symbol             string
	Source             string // "cache" or the provider name
	CoinPrice          float64
	CoinPriceReference float64
	At                 time.Time
}

// Recorder keeps a history of lookups. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

type noop struct{}

// NewNoop returns a Recorder that drops every entry.
func NewNoop() Recorder { return noop{} }

func (noop) Record(context.Context, Entry) error { return nil }
func (noop) Close() error                        { return nil }
