package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"coingateway/internal/app"
	"coingateway/internal/config"
	"coingateway/internal/logging"
	"coingateway/internal/lookup"
	"coingateway/internal/quote"
)

func main() {
	var (
		symbolsCSV string
		configPath string
		timeout    int
		memory     bool
	)
	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "btc"), "comma-separated symbols")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
	flag.IntVar(&timeout, "timeout", 30, "overall timeout seconds")
	flag.BoolVar(&memory, "memory", false, "use an in-process cache instead of redis")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if memory {
		cfg.Cache.Driver = "memory"
	}
	// one-shot run: no periodic catalog refresh
	cfg.CoinGecko.RefreshCron = ""

	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
	}

	os.Exit(run(log, cfg, symbols, time.Duration(timeout)*time.Second))
}

func run(log logrus.FieldLogger, cfg config.Config, symbols []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("startup failed")
		return 1
	}
	defer a.Close()

	var out []quote.Quote
	failed := 0
	for _, s := range symbols {
		q, err := a.Lookup.Lookup(ctx, s)
		if err != nil {
			failed++
			log.WithFields(logrus.Fields{"symbol": s, "kind": lookup.KindOf(err).String()}).WithError(err).Error("lookup failed")
			continue
		}
		out = append(out, q)
	}

	b, _ := json.MarshalIndent(struct {
		Quotes []quote.Quote `json:"quotes"`
	}{Quotes: out}, "", "  ")
	fmt.Println(string(b))
	if failed > 0 {
		return 1
	}
	return 0
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
