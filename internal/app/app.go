// Package app wires configuration into a ready lookup service. It is shared
// by the server and the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"coingateway/internal/config"
	"coingateway/internal/fx/awesomeapi"
	"coingateway/internal/httpx"
	"coingateway/internal/lookup"
	"coingateway/internal/provider"
	"coingateway/internal/provider/coingecko"
	"coingateway/internal/provider/coingeckoadapter"
	"coingateway/internal/provider/mercadobitcoin"
	"coingateway/internal/provider/ratelimit"
	"coingateway/internal/recorder"
	"coingateway/internal/scheduler"
	"coingateway/internal/store"
)

type App struct {
	Config   config.Config
	Log      logrus.FieldLogger
	HTTP     *httpx.Client
	Store    store.Store
	Recorder recorder.Recorder
	Lookup   *lookup.Service
	// CoinGecko is nil when the provider is disabled.
	CoinGecko *coingeckoadapter.Adapter
	// Scheduler is nil when no refresh job is configured.
	Scheduler *scheduler.Scheduler
}

// Build connects the store and recorder, constructs the providers in the
// configured order and returns the assembled App.
func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &App{Config: cfg, Log: log}
	a.HTTP = httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var err error
	if a.Store, err = NewStore(ctx, cfg.Cache); err != nil {
		return nil, err
	}
	if a.Recorder, err = NewRecorder(ctx, cfg.Recorder); err != nil {
		_ = a.Store.Close()
		return nil, err
	}

	providers, err := a.buildProviders(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if len(providers) == 0 {
		_ = a.Close()
		return nil, errors.New("no quote provider enabled")
	}

	fxClient := awesomeapi.New(awesomeapi.WithBaseURL(cfg.FX.BaseURL), awesomeapi.WithHTTPClient(a.HTTP))
	a.Lookup = lookup.New(a.Store, fxClient, providers,
		lookup.WithTTL(cfg.Cache.TTL()),
		lookup.WithPair(cfg.FX.Pair),
		lookup.WithLogger(log),
		lookup.WithRecorder(a.Recorder),
	)

	if a.CoinGecko != nil && cfg.CoinGecko.RefreshCron != "" {
		a.Scheduler = scheduler.New(ctx, log)
		if err := a.Scheduler.Register(cfg.CoinGecko.RefreshCron, a.CoinGecko); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	log.WithField("providers", a.Lookup.Providers()).Info("lookup service ready")
	return a, nil
}

func (a *App) buildProviders(ctx context.Context) ([]provider.Provider, error) {
	cfg := a.Config
	var out []provider.Provider
	for _, name := range cfg.Providers {
		if !cfg.Enabled(name) {
			a.Log.WithField("provider", name).Info("provider disabled, skipping")
			continue
		}
		switch name {
		case config.ProviderMercadoBitcoin:
			mb := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: cfg.MercadoBitcoin.BaseURL}, a.HTTP)
			out = append(out, limit(mb, cfg.MercadoBitcoin.Limits))

		case config.ProviderCoinGecko:
			adapter, err := NewCoinGecko(ctx, cfg.CoinGecko, a.HTTP, a.Log)
			if err != nil {
				return nil, err
			}
			a.CoinGecko = adapter
			out = append(out, limit(adapter, cfg.CoinGecko.Limits))
		}
	}
	return out, nil
}

// NewCoinGecko builds the CoinGecko adapter, fetching its symbol directory.
func NewCoinGecko(ctx context.Context, cfg config.CoinGecko, hc *httpx.Client, log logrus.FieldLogger) (*coingeckoadapter.Adapter, error) {
	client, err := coingecko.NewCoinGeckoAPIClient(cfg.APIKey,
		coingecko.WithBaseURL(cfg.BaseURL),
		coingecko.WithHTTPClient(hc),
		coingecko.WithHeader(http.Header{"Accept": []string{"application/json"}}),
	)
	if err != nil {
		return nil, fmt.Errorf("coingecko client: %w", err)
	}
	return coingeckoadapter.New(ctx, coingeckoadapter.Config{
		VsCurrency: cfg.VsCurrency,
		Overrides:  cfg.Overrides,
	}, client, log)
}

func limit(p provider.Provider, l config.Limits) provider.Provider {
	return ratelimit.Wrap(p, l.MaxRequestsPerMinute, l.Burst, time.Duration(l.MinRequestIntervalSec)*time.Second)
}

// NewStore opens the configured cache store.
func NewStore(ctx context.Context, cfg config.Cache) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(cfg.TTL(), cfg.MaxItems), nil
	default:
		return store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
			TTL:      cfg.TTL(),
		})
	}
}

// NewRecorder opens the configured lookup history sink.
func NewRecorder(ctx context.Context, cfg config.Recorder) (recorder.Recorder, error) {
	switch cfg.Driver {
	case "", "none":
		return recorder.NewNoop(), nil
	default:
		return recorder.NewSQL(ctx, cfg.Driver, cfg.DSN)
	}
}

// Start launches background jobs.
func (a *App) Start() {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
}

// Close stops background jobs and releases the store and recorder.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	if a.Recorder != nil {
		errs = append(errs, a.Recorder.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
