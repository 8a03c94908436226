package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `yaml:"port"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Cache struct {
	Driver     string `yaml:"driver"` // redis or memory
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_sec"`
	MaxItems   int    `yaml:"max_items"` // memory driver only
}

func (c Cache) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// Limits are the per-provider outbound rate limits.
type Limits struct {
	MaxRequestsPerMinute  int `yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int `yaml:"min_request_interval_sec"`
	Burst                 int `yaml:"burst"`
}

type MercadoBitcoin struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Limits  `yaml:",inline"`
}

type CoinGecko struct {
	Enabled    bool              `yaml:"enabled"`
	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	VsCurrency string            `yaml:"vs_currency"`
	Overrides  map[string]string `yaml:"overrides"`
	// RefreshCron rebuilds the symbol directory; empty disables it.
	RefreshCron string `yaml:"refresh_cron"`
	Limits      `yaml:",inline"`
}

type FX struct {
	BaseURL string `yaml:"base_url"`
	Pair    string `yaml:"pair"`
}

type Recorder struct {
	Driver string `yaml:"driver"` // none, sqlite or postgres
	DSN    string `yaml:"dsn"`
}

type Config struct {
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
	Cache  Cache  `yaml:"cache"`
	// Providers is the lookup priority order.
	Providers      []string       `yaml:"providers"`
	MercadoBitcoin MercadoBitcoin `yaml:"mercadobitcoin"`
	CoinGecko      CoinGecko      `yaml:"coingecko"`
	FX             FX             `yaml:"fx"`
	Recorder       Recorder       `yaml:"recorder"`
}

const (
	ProviderMercadoBitcoin = "mercadobitcoin"
	ProviderCoinGecko      = "coingecko"
)

func Default() Config {
	return Config{
		Server: Server{Port: "8000", RequestTimeoutSec: 10},
		Log:    Log{Level: "info", Format: "text"},
		Cache: Cache{
			Driver:     "redis",
			Host:       "0.0.0.0",
			Port:       6379,
			DB:         5,
			TTLSeconds: 3600,
			MaxItems:   50000,
		},
		Providers: []string{ProviderMercadoBitcoin, ProviderCoinGecko},
		MercadoBitcoin: MercadoBitcoin{
			Enabled: true,
			BaseURL: "https://store.mercadobitcoin.com.br/api/v1/",
		},
		CoinGecko: CoinGecko{
			Enabled:     true,
			BaseURL:     "https://api.coingecko.com/api/v3/",
			VsCurrency:  "usd",
			RefreshCron: "0 0 */6 * * *",
			Limits:      Limits{MaxRequestsPerMinute: 30, Burst: 5},
		},
		FX:       FX{BaseURL: "https://economia.awesomeapi.com.br/", Pair: "USD-BRL"},
		Recorder: Recorder{Driver: "none"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path, then
// a .env file, then environment variables. A missing file is not an error.
// If path is empty, config.yaml in the working directory is used when present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int, min int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		x, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || x < min {
			errs = append(errs, fmt.Errorf("%s: invalid value %q", key, v))
			return
		}
		*dst = x
	}
	flag := func(key string, dst *bool) {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes", "y":
			*dst = true
		case "0", "false", "no", "n":
			*dst = false
		}
	}

	str("PORT", &cfg.Server.Port)
	num("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	str("CACHE_DRIVER", &cfg.Cache.Driver)
	str("REDIS_HOST", &cfg.Cache.Host)
	num("REDIS_PORT", &cfg.Cache.Port, 1)
	str("REDIS_PASSWORD", &cfg.Cache.Password)
	num("REDIS_DB", &cfg.Cache.DB, 0)
	num("REDIS_TIME", &cfg.Cache.TTLSeconds, 1)

	if v := os.Getenv("PROVIDERS"); v != "" {
		cfg.Providers = splitCSV(v)
	}
	flag("MERCADO_BITCOIN_ENABLED", &cfg.MercadoBitcoin.Enabled)
	str("STORE_MERCADO_BITCOIN_BASE_URL", &cfg.MercadoBitcoin.BaseURL)
	num("MERCADO_BITCOIN_MAX_RPM", &cfg.MercadoBitcoin.MaxRequestsPerMinute, 0)
	num("MERCADO_BITCOIN_MIN_INTERVAL_SEC", &cfg.MercadoBitcoin.MinRequestIntervalSec, 0)

	flag("COINGECKO_ENABLED", &cfg.CoinGecko.Enabled)
	str("COINGECKO_BASE_URL", &cfg.CoinGecko.BaseURL)
	str("COINGECKO_API_KEY", &cfg.CoinGecko.APIKey)
	str("COINGECKO_VS_CURRENCY", &cfg.CoinGecko.VsCurrency)
	str("COINGECKO_REFRESH_CRON", &cfg.CoinGecko.RefreshCron)
	num("COINGECKO_MAX_RPM", &cfg.CoinGecko.MaxRequestsPerMinute, 0)
	num("COINGECKO_BURST", &cfg.CoinGecko.Burst, 1)

	str("COTACAO_BASE_URL", &cfg.FX.BaseURL)
	str("FX_PAIR", &cfg.FX.Pair)

	str("RECORDER_DRIVER", &cfg.Recorder.Driver)
	str("RECORDER_DSN", &cfg.Recorder.DSN)

	return errors.Join(errs...)
}

// Validate checks the settings the gateway cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Cache.Driver {
	case "redis":
		if c.Cache.Host == "" || c.Cache.Port <= 0 {
			errs = append(errs, errors.New("cache.host and cache.port are required for redis"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not supported", c.Cache.Driver))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, errors.New("cache.ttl_sec must be positive"))
	}
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("providers must list at least one provider"))
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p] {
			errs = append(errs, fmt.Errorf("provider %q is listed more than once", p))
			continue
		}
		seen[p] = true
		switch p {
		case ProviderMercadoBitcoin:
			if c.MercadoBitcoin.BaseURL == "" {
				errs = append(errs, errors.New("mercadobitcoin.base_url is required"))
			}
		case ProviderCoinGecko:
			if c.CoinGecko.BaseURL == "" {
				errs = append(errs, errors.New("coingecko.base_url is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown provider %q", p))
		}
	}
	if c.FX.BaseURL == "" {
		errs = append(errs, errors.New("fx.base_url is required"))
	}
	if !strings.Contains(c.FX.Pair, "-") {
		errs = append(errs, fmt.Errorf("fx.pair %q must look like FROM-TO", c.FX.Pair))
	}
	switch c.Recorder.Driver {
	case "", "none":
	case "sqlite", "postgres":
		if c.Recorder.DSN == "" {
			errs = append(errs, errors.New("recorder.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("recorder.driver %q is not supported", c.Recorder.Driver))
	}
	return errors.Join(errs...)
}

// Enabled reports whether the named provider is switched on.
func (c *Config) Enabled(name string) bool {
	switch name {
	case ProviderMercadoBitcoin:
		return c.MercadoBitcoin.Enabled
	case ProviderCoinGecko:
		return c.CoinGecko.Enabled
	}
	return false
}

// splitCSV lower-cases the items and keeps the first occurrence of each.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
