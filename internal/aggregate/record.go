// Package aggregate folds streams of geotagged civic records into per-cell
// summaries ready for map rendering.
package aggregate

import (
	"time"

	"github.com/ticketless-chicago/blockmap/internal/classify"
	"github.com/ticketless-chicago/blockmap/internal/grid"
)

// Record is one raw civic record, already lifted out of its source format.
// Coordinates stay raw strings on purpose: parse failures are a record-level
// skip decided during the fold, not a source error.
type Record struct {
	Label     string
	RawLat    string
	RawLng    string
	Ward      string
	Address   string
	Timestamp string
	Fields    map[string]string
}

// Field returns a named dataset-specific field, or "" when absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// ParseKind selects the numeric parser for a summed field.
type ParseKind int

const (
	ParseInt ParseKind = iota
	ParseFloat
	// ParseCurrency strips "$" and thousands separators before parsing.
	ParseCurrency
)

// SumSpec declares a running numeric sum over a record field. A value that
// fails to parse contributes zero and never aborts the record.
type SumSpec struct {
	Key   string
	Field string
	Kind  ParseKind
}

// FlagSpec declares a conditional counter: the cell's counter is incremented
// when Match reports true for the folded record.
type FlagSpec struct {
	Key   string
	Match func(r Record) bool
}

// ScoreFunc turns a retained cell's counters into a bounded [0,100] score.
type ScoreFunc func(c *Cell) int

// RowFunc builds the fixed-position output tuple for one retained cell. The
// coordinates arrive already rounded for serialization and the score already
// computed; the cell itself is read-only by contract.
type RowFunc func(c *Cell, lat, lng float64, score int) []any

// MetaKind selects how a meta entry's value is produced.
type MetaKind int

const (
	// MetaDate emits the processing date as YYYY-MM-DD.
	MetaDate MetaKind = iota
	// MetaTotal emits the sum of Count over retained cells.
	MetaTotal
	// MetaBlocks emits the number of retained cells.
	MetaBlocks
	// MetaSum emits the integer total of a named numeric accumulator
	// over retained cells.
	MetaSum
	// MetaSumFloat emits the same total without integer truncation, for
	// currency rollups.
	MetaSumFloat
	// MetaFixed emits a constant value.
	MetaFixed
)

// MetaSpec declares one entry of the output meta block, in emission order.
type MetaSpec struct {
	Key   string
	Kind  MetaKind
	Num   string // accumulator key for MetaSum and MetaSumFloat
	Value any    // constant for MetaFixed
}

// Config parameterizes one grid aggregation run. One value per dataset lives
// in the dataset registry; the engine itself is dataset-agnostic.
type Config struct {
	Name      string
	BlockSize float64
	Envelope  grid.Envelope

	// Table is nil for datasets without categories.
	Table *classify.Table
	// ExcludeLabels pre-filters records whose uppercased label contains
	// any entry, before classification runs.
	ExcludeLabels []string

	// RecencyWindow is the trailing window for the recent-activity counter;
	// zero disables it.
	RecencyWindow time.Duration

	Sums  []SumSpec
	Flags []FlagSpec

	// Threshold is the minimum Count a cell needs to survive filtering.
	Threshold int
	// SortKey names the numeric accumulator used as the descending primary
	// sort key; empty means Count.
	SortKey string

	Score ScoreFunc
	Row   RowFunc
	Meta  []MetaSpec

	// CoordPrecision is the serialization rounding in decimal places.
	CoordPrecision int
}

// Outcome reports what the fold did with one record.
type Outcome int

const (
	Folded Outcome = iota
	SkippedLabel
	SkippedUnclassified
	SkippedUnparsable
	SkippedOutOfBounds
)

// Stats counts fold outcomes over one run. Skips are expected and silent;
// they are surfaced here only so callers can log totals.
type Stats struct {
	Rows         int
	Folded       int
	Label        int
	Unclassified int
	Unparsable   int
	OutOfBounds  int
}

func (s *Stats) record(o Outcome) {
	s.Rows++
	switch o {
	case Folded:
		s.Folded++
	case SkippedLabel:
		s.Label++
	case SkippedUnclassified:
		s.Unclassified++
	case SkippedUnparsable:
		s.Unparsable++
	case SkippedOutOfBounds:
		s.OutOfBounds++
	}
}
