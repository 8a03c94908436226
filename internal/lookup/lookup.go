package lookup

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"coingateway/internal/fx"
	"coingateway/internal/provider"
	"coingateway/internal/quote"
	"coingateway/internal/recorder"
	"coingateway/internal/store"
)

// SourceCache is the recorder source for cache hits.
const SourceCache = "cache"

// Service resolves a symbol into a Quote: cache first, then providers in
// order, then FX conversion when the winner has no reference price.
//
// There are no locks. Concurrent lookups of the same symbol each do the full
// fetch and only the first cache write persists.
type Service struct {
	providers []provider.Provider
	fx        fx.Provider
	store     store.Store
	ttl       time.Duration
	pair      string
	log       logrus.FieldLogger
	recorder  recorder.Recorder
}

type Option func(*Service)

// WithTTL sets the cache entry lifetime. Default: store.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPair sets the FX pair used for conversion. Default: fx.DefaultPair.
func WithPair(pair string) Option {
	return func(s *Service) {
		if pair != "" {
			s.pair = pair
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithRecorder(r recorder.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New builds a Service. The order of providers is the priority order.
func New(st store.Store, fxp fx.Provider, providers []provider.Provider, opts ...Option) *Service {
	s := &Service{
		providers: append([]provider.Provider(nil), providers...),
		fx:        fxp,
		store:     st,
		ttl:       store.DefaultTTL,
		pair:      fx.DefaultPair,
		log:       logrus.StandardLogger(),
		recorder:  recorder.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers returns the names of the configured providers in priority order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

func (s *Service) Lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	req, err := quote.NewLookupRequest(symbol)
	if err != nil {
		return quote.Quote{}, &Error{Kind: KindInvalid, Symbol: symbol, Err: err}
	}
	log := s.log.WithField("symbol", req.Symbol)

	var cached quote.Quote
	hit, err := s.store.Get(ctx, req.Symbol, &cached)
	var invalid error
	if err == nil && hit {
		invalid = cached.Validate()
	}
	switch {
	case err != nil:
		log.WithError(err).Warn("cache read failed, treating as miss")
	case invalid != nil:
		// the key space is shared, so the value may not be a quote at all
		log.WithError(invalid).Warn("cached value is not a valid quote, treating as miss")
	case hit:
		log.Debug("cache hit")
		s.record(ctx, log, SourceCache, cached)
		return cached, nil
	}

	res, ok := s.tryProviders(ctx, log, req.Symbol)
	if !ok {
		if err := ctx.Err(); err != nil {
			return quote.Quote{}, &Error{Kind: KindTimeout, Symbol: req.Symbol, Err: err}
		}
		return quote.Quote{}, &Error{Kind: KindNotFound, Symbol: req.Symbol, Err: ErrNotFound}
	}
	q := res.Quote

	if q.NeedsConversion() {
		rate, err := s.fx.Rate(ctx, s.pair)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return quote.Quote{}, &Error{Kind: KindTimeout, Symbol: req.Symbol, Err: cerr}
			}
			return quote.Quote{}, &Error{Kind: KindFx, Symbol: req.Symbol, Err: err}
		}
		q.CoinPriceReference = convert(q.CoinPrice, rate.High)
		log.WithFields(logrus.Fields{"pair": s.pair, "high": rate.High}).Debug("reference price converted")
	}

	s.writeCache(ctx, log, req.Symbol, q)
	s.record(ctx, log, res.Provider, q)
	return q, nil
}

// tryProviders returns the first successful result in priority order.
func (s *Service) tryProviders(ctx context.Context, log logrus.FieldLogger, symbol string) (provider.Result, bool) {
	for _, p := range s.providers {
		res := provider.Attempt(ctx, p, symbol)
		if res.OK() {
			if res.Quote.Symbol == "" {
				res.Quote.Symbol = symbol
			}
			if err := res.Quote.Validate(); err != nil {
				res.Err = provider.NewError(res.Provider, symbol, err)
			}
		}
		if !res.OK() {
			entry := log.WithField("provider", res.Provider).WithError(res.Err)
			if errors.Is(res.Err, provider.ErrUnknownSymbol) {
				entry.Info("provider does not know symbol")
			} else {
				entry.Warn("provider failed")
			}
			continue
		}
		return res, true
	}
	return provider.Result{}, false
}

// writeCache persists q if absent and makes sure the key has a TTL. Neither
// failure fails the lookup.
func (s *Service) writeCache(ctx context.Context, log logrus.FieldLogger, key string, q quote.Quote) {
	stored, err := s.store.SetIfAbsent(ctx, key, q)
	if err != nil {
		log.WithError(err).Warn("cache write failed")
	} else if !stored {
		log.Debug("cache already populated by a concurrent lookup")
	}
	if _, err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		log.WithError(err).Warn("cache expire failed")
	}
}

func (s *Service) record(ctx context.Context, log logrus.FieldLogger, source string, q quote.Quote) {
	err := s.recorder.Record(ctx, recorder.Entry{
		Symbol:             q.Symbol,
		Source:             source,
		CoinPrice:          q.CoinPrice,
		CoinPriceReference: q.CoinPriceReference,
		At:                 time.Now(),
	})
	if err != nil {
		log.WithError(err).Warn("recording lookup failed")
	}
}

// convert returns high * price without binary float drift.
func convert(price, high float64) float64 {
	return decimal.NewFromFloat(high).Mul(decimal.NewFromFloat(price)).InexactFloat64()
}
