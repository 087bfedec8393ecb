// Package runner orchestrates dataset updates: stream, aggregate, write,
// and record history, with per-dataset failure isolation.
package runner

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
	"github.com/ticketless-chicago/blockmap/internal/dataset"
	"github.com/ticketless-chicago/blockmap/internal/history"
	"github.com/ticketless-chicago/blockmap/internal/writer"
)

// Runner processes datasets through a record source into output files.
type Runner struct {
	source      Source
	sourceName  string
	out         *writer.Writer
	hist        *history.Store // nil disables history
	concurrency int
}

// Options configures a Runner.
type Options struct {
	Source Source
	// SourceName labels run history entries ("soda" or "csv").
	SourceName  string
	Writer      *writer.Writer
	History     *history.Store
	Concurrency int
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	return &Runner{
		source:      opts.Source,
		sourceName:  opts.SourceName,
		out:         opts.Writer,
		hist:        opts.History,
		concurrency: opts.Concurrency,
	}
}

// Result is one dataset's outcome.
type Result struct {
	Dataset    string
	OutputFile string
	Stats      aggregate.Stats
	Blocks     int
	Bytes      int
	Duration   time.Duration
	Err        error
}

// Run processes the given datasets concurrently. A dataset failure never
// stops the others; the returned error names every failed dataset so the
// process can exit non-zero after the healthy ones have written.
func (r *Runner) Run(ctx context.Context, datasets []dataset.Config, now time.Time) ([]Result, error) {
	results := make([]Result, len(datasets))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, ds := range datasets {
		g.Go(func() error {
			results[i] = r.runOne(ctx, ds, now)
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Dataset)
		}
	}
	if len(failed) > 0 {
		return results, eris.Errorf("runner: %d of %d datasets failed: %s",
			len(failed), len(datasets), strings.Join(failed, ", "))
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, ds dataset.Config, now time.Time) Result {
	started := time.Now()
	log := zap.L().With(zap.String("dataset", ds.Name))
	log.Info("processing dataset", zap.String("title", ds.Title))

	res := Result{Dataset: ds.Name, OutputFile: ds.OutputFile}
	summary, stats, err := r.aggregate(ctx, ds, now)
	res.Stats = stats
	if err != nil {
		res.Err = eris.Wrapf(err, "runner: dataset %s", ds.Name)
	} else {
		res.Blocks = len(summary.Data)
		res.Bytes, err = r.out.WriteJSON(ds.OutputFile, summary)
		if err != nil {
			res.Err = eris.Wrapf(err, "runner: dataset %s", ds.Name)
		}
	}
	res.Duration = time.Since(started)

	if res.Err != nil {
		log.Error("dataset failed", zap.Error(res.Err), zap.Duration("elapsed", res.Duration))
	} else {
		log.Info("dataset complete",
			zap.Int("rows", stats.Rows),
			zap.Int("folded", stats.Folded),
			zap.Int("blocks", res.Blocks),
			zap.Int("bytes", res.Bytes),
			zap.Duration("elapsed", res.Duration),
		)
	}

	r.record(ctx, res, started)
	return res
}

// aggregate streams the dataset through the matching accumulator. A non-nil
// source error marks the whole dataset failed even though a partial summary
// exists: a half-fetched dataset must never overwrite a complete output file.
func (r *Runner) aggregate(ctx context.Context, ds dataset.Config, now time.Time) (*aggregate.Summary, aggregate.Stats, error) {
	records, errc, err := r.source(ctx, ds)
	if err != nil {
		return nil, aggregate.Stats{}, err
	}

	var summary *aggregate.Summary
	var stats aggregate.Stats
	switch ds.Kind {
	case dataset.Camera:
		summary, stats, err = aggregate.RunCameras(records, errc, ds.Cam, now)
	default:
		summary, stats, err = aggregate.Run(records, errc, ds.Agg, now)
	}
	if err != nil {
		return nil, stats, err
	}
	return summary, stats, nil
}

func (r *Runner) record(ctx context.Context, res Result, started time.Time) {
	if r.hist == nil {
		return
	}
	run := history.Run{
		Dataset:    res.Dataset,
		Source:     r.sourceName,
		Status:     history.StatusOK,
		Rows:       res.Stats.Rows,
		Folded:     res.Stats.Folded,
		Skipped:    res.Stats.Rows - res.Stats.Folded,
		Blocks:     res.Blocks,
		Bytes:      res.Bytes,
		OutputFile: res.OutputFile,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if res.Err != nil {
		run.Status = history.StatusFailed
		run.Error = res.Err.Error()
	}
	if _, err := r.hist.RecordRun(ctx, run); err != nil {
		zap.L().Warn("failed to record run history", zap.Error(err))
	}
}
