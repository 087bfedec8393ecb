package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ticketless-chicago/blockmap/internal/dataset"
	"github.com/ticketless-chicago/blockmap/internal/fetcher"
	"github.com/ticketless-chicago/blockmap/internal/history"
	"github.com/ticketless-chicago/blockmap/internal/runner"
	"github.com/ticketless-chicago/blockmap/internal/socrata"
	"github.com/ticketless-chicago/blockmap/internal/writer"
)

// env bundles the shared output and history handles used by the update and
// process commands.
type env struct {
	out  *writer.Writer
	hist *history.Store
}

func openEnv(ctx context.Context) (*env, error) {
	out, err := writer.New(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	if err := hist.Migrate(ctx); err != nil {
		hist.Close()
		return nil, err
	}

	return &env{out: out, hist: hist}, nil
}

func (e *env) Close() {
	if e.hist != nil {
		_ = e.hist.Close()
	}
}

// portalSource builds the SODA record source from config.
func portalSource(now time.Time) runner.Source {
	headers := map[string]string{}
	if cfg.Portal.AppToken != "" {
		headers["X-App-Token"] = cfg.Portal.AppToken
	}
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    cfg.Portal.Timeout(),
		MaxRetries: cfg.Portal.MaxRetries,
		Headers:    headers,
		RateLimiters: map[string]*rate.Limiter{
			"data.cityofchicago.org": rate.NewLimiter(rate.Limit(cfg.Portal.RatePerSec), 5),
		},
	})
	client := socrata.NewClient(f, cfg.Portal.BaseURL, cfg.Portal.PageSize)
	return runner.SodaSource(client, cfg.Update.Lookback(), now)
}

// selectDatasets resolves positional args against the registry; no args
// means every dataset.
func selectDatasets(args []string) ([]dataset.Config, error) {
	if len(args) == 0 {
		return dataset.All(), nil
	}
	selected := make([]dataset.Config, 0, len(args))
	for _, name := range args {
		ds, err := dataset.Get(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, ds)
	}
	return selected, nil
}

// printResults writes the per-dataset outcome table to stdout.
func printResults(results []runner.Result) {
	fmt.Printf("%-12s %-10s %10s %10s %8s %10s %10s\n",
		"DATASET", "STATUS", "ROWS", "FOLDED", "BLOCKS", "BYTES", "ELAPSED")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed"
		}
		fmt.Printf("%-12s %-10s %10d %10d %8d %10d %10s\n",
			r.Dataset, status, r.Stats.Rows, r.Stats.Folded, r.Blocks, r.Bytes,
			r.Duration.Round(time.Millisecond))
	}
}
