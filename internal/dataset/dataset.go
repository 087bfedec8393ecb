// Package dataset holds the per-dataset configuration registry: block sizes,
// category tables, score formulas, thresholds, output schemas, and source
// specs for every civic dataset the tool aggregates.
package dataset

import (
	"strings"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
)

// Kind distinguishes the two aggregation shapes.
type Kind int

const (
	// Grid datasets aggregate one cell per quantized coordinate pair.
	Grid Kind = iota
	// Camera datasets aggregate one entry per camera id.
	Camera
)

// RowMap maps a source row onto an aggregate.Record. Each source (SODA API,
// bulk CSV export) carries its own map because the portal exposes snake_case
// fields while CSV exports use upper-case headers.
type RowMap struct {
	Label     string
	Lat       string
	Lng       string
	Ward      string
	Address   string
	Timestamp string

	// AddressParts composes the address from several columns (street
	// number, direction, name) joined by single spaces, used when Address
	// is empty.
	AddressParts []string

	// Fields maps normalized record field names to source columns.
	Fields map[string]string
}

// Record builds a record from a column getter.
func (m RowMap) Record(get func(string) string) aggregate.Record {
	r := aggregate.Record{
		Label:     get(m.Label),
		RawLat:    get(m.Lat),
		RawLng:    get(m.Lng),
		Ward:      get(m.Ward),
		Address:   get(m.Address),
		Timestamp: get(m.Timestamp),
	}
	if r.Address == "" && len(m.AddressParts) > 0 {
		parts := make([]string, 0, len(m.AddressParts))
		for _, col := range m.AddressParts {
			parts = append(parts, get(col))
		}
		r.Address = strings.TrimSpace(strings.Join(parts, " "))
	}
	if len(m.Fields) > 0 {
		r.Fields = make(map[string]string, len(m.Fields))
		for name, col := range m.Fields {
			r.Fields[name] = get(col)
		}
	}
	return r
}

// SodaSpec describes how to query the dataset on the Chicago Data Portal's
// SODA API.
type SodaSpec struct {
	// DatasetID is the portal resource id (e.g. "ijzp-q8t2").
	DatasetID string
	// Select lists the columns to request.
	Select []string
	// DateField, when set, restricts the query to the trailing lookback
	// window ("{DateField} > '...'").
	DateField string
	// RequireCoords appends "latitude IS NOT NULL" to the where clause.
	RequireCoords bool
	// Map lifts a SODA row onto a record.
	Map RowMap
}

// CSVSpec describes the bulk CSV export variant of the dataset.
type CSVSpec struct {
	// File is the expected file name inside the process input directory.
	File string
	// Map lifts a CSV row (by trimmed header name) onto a record.
	Map RowMap
}

// Config is one dataset's complete configuration.
type Config struct {
	Name       string
	Title      string
	OutputFile string
	Kind       Kind

	Agg aggregate.Config
	Cam aggregate.CameraConfig

	Soda SodaSpec
	CSV  CSVSpec
}

// fieldContainsAny returns a flag matcher that uppercases the named record
// fields, joins them, and tests substring containment against keywords.
func fieldContainsAny(keywords []string, fields ...string) func(aggregate.Record) bool {
	return func(r aggregate.Record) bool {
		var sb strings.Builder
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(r.Field(f))
		}
		haystack := strings.ToUpper(sb.String())
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				return true
			}
		}
		return false
	}
}

// yesFlag matches the portal's assorted boolean spellings.
func yesFlag(field string) func(aggregate.Record) bool {
	return func(r aggregate.Record) bool {
		switch strings.ToUpper(strings.TrimSpace(r.Field(field))) {
		case "Y", "TRUE", "1":
			return true
		}
		return false
	}
}
