package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"exchangerates/internal/app"
	"exchangerates/internal/config"
	"exchangerates/internal/logging"
	"exchangerates/internal/provider"
)

// rateSource is the slice of the aggregator the dump needs.
type rateSource interface {
	GetRates(ctx context.Context, base string, symbols []string) (provider.RateMap, error)
}

type entry struct {
	Base  string           `json:"base"`
	Rates provider.RateMap `json:"rates"`
}

type dumpOptions struct {
	Concurrency int
	Retries     int
	Backoff     time.Duration
	Timeout     time.Duration
}

func main() {
	var (
		basesFile   string
		basesCSV    string
		symbolsCSV  string
		outPath     string
		cfgPath     string
		concurrency int
		timeoutSec  int
		maxRetries  int
	)
	flag.StringVar(&basesFile, "bases-file", "", "JSON file with base currencies (array, or object keyed by code)")
	flag.StringVar(&basesCSV, "bases", "EUR,USD,GBP", "comma-separated base currencies when no bases-file is given")
	flag.StringVar(&symbolsCSV, "symbols", "USD,EUR,GBP,JPY,CHF,NZD,AUD,CAD", "comma-separated target currencies")
	flag.StringVar(&outPath, "out", "rates_snapshot.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", "", "path to config.json or config.yaml (optional)")
	flag.IntVar(&concurrency, "concurrency", 4, "number of bases fetched in parallel")
	flag.IntVar(&timeoutSec, "timeout", 20, "per-base timeout seconds")
	flag.IntVar(&maxRetries, "retries", 2, "retries for a base that came back empty")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("config: %v", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	bases := provider.SplitCSV(basesCSV)
	if basesFile != "" {
		if bases, err = readBases(basesFile); err != nil {
			fatal("read bases: %v", err)
		}
	}
	symbols := provider.SplitCSV(symbolsCSV)
	if len(bases) == 0 || len(symbols) == 0 {
		fatal("need at least one base and one symbol")
	}
	log.Info("dumping rates", zap.Int("bases", len(bases)), zap.Int("symbols", len(symbols)))

	a, err := app.New(cfg, log)
	if err != nil {
		fatal("setup: %v", err)
	}
	defer a.Close()

	outFile, err := os.Create(outPath)
	if err != nil {
		fatal("create out: %v", err)
	}
	defer outFile.Close()
	bw := bufio.NewWriterSize(outFile, 1<<20)

	n, err := dump(context.Background(), a.Aggregator, bases, symbols, bw, dumpOptions{
		Concurrency: concurrency,
		Retries:     maxRetries,
		Backoff:     500 * time.Millisecond,
		Timeout:     time.Duration(timeoutSec) * time.Second,
	}, log)
	if err != nil {
		fatal("dump: %v", err)
	}
	if err := bw.Flush(); err != nil {
		fatal("flush: %v", err)
	}
	log.Info("done", zap.String("out", outPath), zap.Int("written", n), zap.Int("skipped", len(bases)-n))
}

// dump fetches consensus rates for every base with a worker pool and streams
// them as {"generatedAt":...,"data":[...]} to w. Bases that stay empty after
// the retries are skipped. It returns the number of entries written.
func dump(ctx context.Context, src rateSource, bases, symbols []string, w io.Writer, opts dumpOptions, log *zap.Logger) (int, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	if _, err := fmt.Fprintf(w, `{"generatedAt":%q,"data":[`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	var (
		writeMu  sync.Mutex
		written  int
		writeErr error
	)

	fetchOne := func(base string) (provider.RateMap, error) {
		for attempt := 0; ; attempt++ {
			rctx := ctx
			var cancel context.CancelFunc = func() {}
			if opts.Timeout > 0 {
				rctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			}
			rates, err := src.GetRates(rctx, base, symbols)
			cancel()
			if err != nil || len(rates) > 0 || attempt >= opts.Retries {
				return rates, err
			}
			back := opts.Backoff * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(back):
			}
		}
	}

	jobs := make(chan string, opts.Concurrency*2)
	var wg sync.WaitGroup
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for base := range jobs {
				rates, err := fetchOne(base)
				if err != nil {
					log.Warn("base failed", zap.String("base", base), zap.Error(err))
					continue
				}
				if len(rates) == 0 {
					log.Warn("no rates for base", zap.String("base", base))
					continue
				}
				b, err := json.Marshal(entry{Base: strings.ToUpper(strings.TrimSpace(base)), Rates: rates})
				if err != nil {
					continue
				}
				writeMu.Lock()
				if writeErr == nil {
					if written > 0 {
						_, writeErr = io.WriteString(w, ",")
					}
					if writeErr == nil {
						_, writeErr = w.Write(b)
					}
					if writeErr == nil {
						written++
					}
				}
				writeMu.Unlock()
			}
		}()
	}

	for _, base := range bases {
		jobs <- base
	}
	close(jobs)
	wg.Wait()

	if writeErr != nil {
		return written, writeErr
	}
	_, err := io.WriteString(w, "]}")
	return written, err
}

// readBases accepts ["EUR","USD"] or {"EUR":...,"USD":...}.
func readBases(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
