package coingeckoadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"coingateway/internal/provider"
	"coingateway/internal/provider/coingecko"
	"coingateway/internal/quote"
)

type Config struct {
	Name       string            // display name, default: CoinGecko
	VsCurrency string            // currency of coin_price, default: usd
	Overrides  map[string]string // symbol -> coin id, wins over the catalog
}

// API is the part of the CoinGecko client the adapter needs.
type API interface {
	GetCoinsList(ctx context.Context, opts ...coingecko.CoinGeckoAPIClientOption) ([]coingecko.CoinListEntry, error)
	GetCoin(ctx context.Context, id string, opts ...coingecko.CoinGeckoAPIClientOption) (*coingecko.Coin, error)
}

// Adapter is the catalog-style quote provider. The directory is fetched once
// in New and only rebuilt through Refresh.
type Adapter struct {
	cfg    Config
	client API
	log    logrus.FieldLogger

	catalog atomic.Pointer[Catalog]
	// coalesce concurrent refreshes
	sf singleflight.Group
}

// New builds the adapter and its initial catalog. A failed catalog fetch
// fails construction.
func New(ctx context.Context, cfg Config, client API, log logrus.FieldLogger) (*Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "CoinGecko"
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = "usd"
	}
	cfg.VsCurrency = strings.ToLower(cfg.VsCurrency)
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Adapter{cfg: cfg, client: client, log: log.WithField("provider", cfg.Name)}
	if err := a.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("building %s catalog: %w", cfg.Name, err)
	}
	return a, nil
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Catalog returns the current directory snapshot.
func (a *Adapter) Catalog() *Catalog { return a.catalog.Load() }

// Refresh rebuilds the directory. Concurrent callers share one upstream call;
// on failure the previous snapshot stays in place.
func (a *Adapter) Refresh(ctx context.Context) error {
	_, err, _ := a.sf.Do("catalog", func() (any, error) {
		entries, err := a.client.GetCoinsList(ctx)
		if err != nil {
			return nil, err
		}
		c := NewCatalog(entries, a.cfg.Overrides, time.Now().UTC())
		a.catalog.Store(c)
		a.log.WithField("symbols", c.Len()).Info("catalog built")
		return c, nil
	})
	return err
}

func (a *Adapter) FetchBySymbol(ctx context.Context, symbol string) (quote.Quote, error) {
	id, ok := a.Catalog().ID(symbol)
	if !ok {
		return quote.Quote{}, provider.NewError(a.cfg.Name, symbol, provider.ErrUnknownSymbol)
	}

	coin, err := a.client.GetCoin(ctx, id)
	if err != nil {
		if errors.Is(err, coingecko.ErrNotFound) {
			err = fmt.Errorf("%w: %v", provider.ErrUnknownSymbol, err)
		}
		return quote.Quote{}, provider.NewError(a.cfg.Name, symbol, err)
	}

	price, ok := coin.MarketData.CurrentPrice[a.cfg.VsCurrency]
	if !ok {
		return quote.Quote{}, provider.NewError(a.cfg.Name, symbol, fmt.Errorf("no %s price for %s", a.cfg.VsCurrency, id))
	}
	usd, ok := coin.MarketData.CurrentPrice["usd"]
	if !ok {
		return quote.Quote{}, provider.NewError(a.cfg.Name, symbol, fmt.Errorf("no usd price for %s", id))
	}

	sym := strings.ToLower(coin.Symbol)
	if sym == "" {
		sym = strings.ToLower(symbol)
	}
	return quote.Quote{
		CoinName:           coin.Name,
		Symbol:             sym,
		CoinPrice:          price,
		CoinPriceReference: usd,
		ConsultedAt:        quote.Now(),
	}, nil
}
