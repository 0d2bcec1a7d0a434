package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"exchangerates/internal/aggregate"
	"exchangerates/internal/app"
	"exchangerates/internal/config"
	"exchangerates/internal/logging"
	"exchangerates/internal/provider"
)

type providerOutput struct {
	Provider string           `json:"provider"`
	Rates    provider.RateMap `json:"rates"`
	Error    string           `json:"error,omitempty"`
}

type output struct {
	Base      string           `json:"base"`
	Rates     provider.RateMap `json:"rates"`
	Providers []providerOutput `json:"providers,omitempty"`
}

func main() {
	var (
		base        string
		symbolsCSV  string
		configPath  string
		timeout     int
		perProvider bool
	)
	flag.StringVar(&base, "base", getenv("BASE", "EUR"), "base currency")
	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "USD,GBP,JPY"), "comma-separated target currencies")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json or config.yaml (optional)")
	flag.IntVar(&timeout, "timeout", 15, "overall timeout seconds")
	flag.BoolVar(&perProvider, "per-provider", false, "also print each provider's own answer")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	// the CLI never shares a cache
	cfg.Cache.Backend = "memory"
	log, err := logging.New(cfg.Log)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log)
	if err != nil {
		fatal("setup: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	out, err := fetch(ctx, a.Aggregator, base, provider.SplitCSV(symbolsCSV), perProvider)
	if err != nil {
		fatal("fetch: %v", err)
	}
	if len(out.Rates) == 0 {
		log.Warn("no exchange rates available", zap.String("base", base))
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
	if len(out.Rates) == 0 {
		os.Exit(2)
	}
}

// fetch prints the consensus. With perProvider it runs a single uncached round
// and derives the consensus from those same answers.
func fetch(ctx context.Context, agg *aggregate.Aggregator, base string, symbols []string, perProvider bool) (output, error) {
	normBase, normSymbols, err := provider.NormalizeRequest(base, symbols)
	if err != nil {
		return output{}, err
	}
	out := output{Base: normBase}
	if !perProvider {
		out.Rates, err = agg.GetRates(ctx, normBase, normSymbols)
		return out, err
	}

	results, err := agg.FetchEach(ctx, normBase, normSymbols)
	if err != nil {
		return out, err
	}
	survivors := make([]provider.RateMap, 0, len(results))
	for _, r := range results {
		po := providerOutput{Provider: r.Provider, Rates: r.Rates}
		if r.Err != nil {
			po.Error = r.Err.Error()
		}
		out.Providers = append(out.Providers, po)
		if len(r.Rates) > 0 {
			survivors = append(survivors, r.Rates)
		}
	}
	out.Rates, err = aggregate.Consensus(survivors, normSymbols, agg.Policy())
	return out, err
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
