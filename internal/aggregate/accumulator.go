package aggregate

import (
	"strings"
	"time"

	"github.com/ticketless-chicago/blockmap/internal/grid"
)

// Cell is the mutable per-grid-cell state owned by the accumulator. All
// counters are append-only during the fold phase; scoring and filtering read
// but never mutate.
type Cell struct {
	Key        grid.Key
	Count      int
	Categories map[string]int
	// Ward and Address latch the first non-empty value folded into the
	// cell and are never overwritten. This is the single place where input
	// order is observable in the output.
	Ward    string
	Address string
	// Recent counts folded records whose timestamp falls inside the
	// dataset's trailing window, measured from processing time.
	Recent int
	// Nums holds the dataset-specific numeric accumulators (summed cost,
	// injuries, arrests, potholes filled, ...), all monotonic.
	Nums map[string]float64
}

// Num returns a named numeric accumulator, zero when never incremented.
func (c *Cell) Num(key string) float64 {
	return c.Nums[key]
}

// Accumulator folds records into per-cell state for one aggregation run.
// It is single-pass and synchronous: memory is bounded by the number of
// distinct cells touched, never by the number of raw records.
type Accumulator struct {
	cfg    Config
	cells  map[grid.Key]*Cell
	cutoff time.Time
	stats  Stats
}

// NewAccumulator creates an accumulator for one run. The recency cutoff is
// fixed at construction from the processing time, so every record in the run
// is judged against the same window.
func NewAccumulator(cfg Config, now time.Time) *Accumulator {
	a := &Accumulator{
		cfg:   cfg,
		cells: make(map[grid.Key]*Cell),
	}
	if cfg.RecencyWindow > 0 {
		a.cutoff = now.Add(-cfg.RecencyWindow)
	}
	return a
}

// Fold processes one record: pre-filter, classify, quantize, accumulate.
// Every skip path is silent by design; the returned outcome exists for
// stats and tests, not for error handling.
func (a *Accumulator) Fold(r Record) Outcome {
	o := a.fold(r)
	a.stats.record(o)
	return o
}

func (a *Accumulator) fold(r Record) Outcome {
	if a.excluded(r.Label) {
		return SkippedLabel
	}

	category := ""
	if a.cfg.Table != nil {
		tag, ok := a.cfg.Table.Classify(r.Label)
		if !ok {
			return SkippedUnclassified
		}
		category = tag
	}

	key, res := grid.Resolve(r.RawLat, r.RawLng, a.cfg.Envelope, a.cfg.BlockSize)
	switch res {
	case grid.RejectedUnparsable:
		return SkippedUnparsable
	case grid.RejectedOutOfBounds:
		return SkippedOutOfBounds
	}

	c := a.cells[key]
	if c == nil {
		c = &Cell{
			Key:        key,
			Categories: make(map[string]int),
			Nums:       make(map[string]float64),
		}
		a.cells[key] = c
	}

	c.Count++
	if category != "" {
		c.Categories[category]++
	}
	if c.Ward == "" {
		c.Ward = r.Ward
	}
	if c.Address == "" {
		c.Address = r.Address
	}

	for _, s := range a.cfg.Sums {
		c.Nums[s.Key] += parseNumeric(r.Field(s.Field), s.Kind)
	}
	for _, f := range a.cfg.Flags {
		if f.Match(r) {
			c.Nums[f.Key]++
		}
	}

	if !a.cutoff.IsZero() {
		if ts, ok := parseTimestamp(r.Timestamp); ok && !ts.Before(a.cutoff) {
			c.Recent++
		}
	}

	return Folded
}

func (a *Accumulator) excluded(label string) bool {
	if len(a.cfg.ExcludeLabels) == 0 {
		return false
	}
	upper := strings.ToUpper(label)
	for _, kw := range a.cfg.ExcludeLabels {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// Stats returns the fold outcome counters so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Cells returns the live cell count, bounded by distinct grid cells touched.
func (a *Accumulator) Cells() int {
	return len(a.cells)
}
