package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"coingateway/internal/app"
	"coingateway/internal/config"
	"coingateway/internal/httpx"
	"coingateway/internal/logging"
)

// catalog_dump writes the CoinGecko symbol -> id directory, as the gateway
// would resolve it, to a JSON file.
func main() {
	var (
		outPath    string
		cfgPath    string
		timeoutSec int
	)
	flag.StringVar(&outPath, "out", "coingecko_catalog.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", "", "path to config.yaml (optional)")
	flag.IntVar(&timeoutSec, "timeout", 30, "HTTP timeout seconds")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	adapter, err := app.NewCoinGecko(ctx, cfg.CoinGecko, httpx.New(time.Duration(timeoutSec)*time.Second), log)
	if err != nil {
		log.WithError(err).Fatal("building catalog")
	}
	catalog := adapter.Catalog()
	entries := catalog.Entries()

	symbols := make([]string, 0, len(entries))
	for s := range entries {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	type row struct {
		Symbol string `json:"symbol"`
		ID     string `json:"id"`
	}
	rows := make([]row, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, row{Symbol: s, ID: entries[s]})
	}

	f, err := os.Create(outPath)
	if err != nil {
		log.WithError(err).Fatal("create out")
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	err = enc.Encode(struct {
		BuiltAt time.Time `json:"built_at"`
		Count   int       `json:"count"`
		Coins   []row     `json:"coins"`
	}{BuiltAt: catalog.BuiltAt(), Count: len(rows), Coins: rows})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithError(err).Fatal("write out")
	}
	log.WithFields(logrus.Fields{"symbols": len(rows), "out": outPath}).Info("catalog written")
}
