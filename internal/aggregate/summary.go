package aggregate

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ticketless-chicago/blockmap/internal/classify"
	"github.com/ticketless-chicago/blockmap/internal/grid"
)

// Summary is the fixed-schema output object for one dataset: an ordered meta
// block, an optional category legend, and the ordered cell tuples. Key and
// tuple field order are part of the external contract consumed by the map
// renderer, so marshaling is explicit rather than map-based.
type Summary struct {
	Meta MetaBlock
	Cats *classify.Table
	Data [][]any
}

// MarshalJSON emits {"meta":...,"cats":...,"data":...} with cats omitted for
// datasets without categories.
func (s *Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"meta":`)
	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return nil, err
	}
	buf.Write(meta)
	if s.Cats != nil {
		buf.WriteString(`,"cats":`)
		cats, err := marshalLegend(s.Cats)
		if err != nil {
			return nil, err
		}
		buf.Write(cats)
	}
	buf.WriteString(`,"data":`)
	data, err := json.Marshal(s.Data)
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MetaEntry is one ordered key/value pair of the meta block.
type MetaEntry struct {
	Key   string
	Value any
}

// MetaBlock is the ordered meta object. JSON objects have no defined key
// order, but downstream diffs of regenerated files do, so emission order is
// fixed per dataset.
type MetaBlock []MetaEntry

// MarshalJSON writes the entries as a JSON object in slice order.
func (m MetaBlock) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns a meta value by key, for tests and the preview API.
func (m MetaBlock) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

type legendEntry struct {
	N string `json:"n"`
	C string `json:"c"`
}

// marshalLegend emits {"tag":{"n":name,"c":color},...} in table order.
func marshalLegend(t *classify.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Tag)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(legendEntry{N: c.Name, C: c.Color})
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TruncClamp truncates a score expression toward zero and clamps it into
// [0,100]. The low clamp is a defensive guard; formulas never go negative
// in practice.
func TruncClamp(x float64) int {
	n := int(x)
	if n > 100 {
		return 100
	}
	if n < 0 {
		return 0
	}
	return n
}

// Summarize runs the read-only post-pass: threshold filtering, deterministic
// ordering, scoring, meta rollups, and tuple serialization. Cells below the
// threshold are discarded entirely and never appear in any output field.
func (a *Accumulator) Summarize(now time.Time) (*Summary, error) {
	cfg := a.cfg

	retained := make([]*Cell, 0, len(a.cells))
	for _, c := range a.cells {
		if c.Count >= cfg.Threshold {
			retained = append(retained, c)
		}
	}

	// Descending primary key; ties break on ascending quantized coordinates
	// so regenerated files are byte-stable for identical input multisets.
	primary := func(c *Cell) float64 {
		if cfg.SortKey == "" {
			return float64(c.Count)
		}
		return c.Num(cfg.SortKey)
	}
	sort.Slice(retained, func(i, j int) bool {
		pi, pj := primary(retained[i]), primary(retained[j])
		if pi != pj {
			return pi > pj
		}
		if retained[i].Key.Lat != retained[j].Key.Lat {
			return retained[i].Key.Lat < retained[j].Key.Lat
		}
		return retained[i].Key.Lng < retained[j].Key.Lng
	})

	meta, err := buildMeta(cfg.Meta, retained, now)
	if err != nil {
		return nil, err
	}

	data := make([][]any, 0, len(retained))
	for _, c := range retained {
		lat := grid.RoundCoord(c.Key.Lat, cfg.CoordPrecision)
		lng := grid.RoundCoord(c.Key.Lng, cfg.CoordPrecision)
		score := 0
		if cfg.Score != nil {
			score = cfg.Score(c)
		}
		data = append(data, cfg.Row(c, lat, lng, score))
	}

	return &Summary{Meta: meta, Cats: cfg.Table, Data: data}, nil
}

func buildMeta(specs []MetaSpec, retained []*Cell, now time.Time) (MetaBlock, error) {
	meta := make(MetaBlock, 0, len(specs))
	for _, spec := range specs {
		var v any
		switch spec.Kind {
		case MetaDate:
			v = now.Format("2006-01-02")
		case MetaTotal:
			total := 0
			for _, c := range retained {
				total += c.Count
			}
			v = total
		case MetaBlocks:
			v = len(retained)
		case MetaSum, MetaSumFloat:
			var sum float64
			for _, c := range retained {
				sum += c.Num(spec.Num)
			}
			if spec.Kind == MetaSumFloat {
				v = sum
			} else {
				v = int(sum)
			}
		case MetaFixed:
			v = spec.Value
		default:
			return nil, eris.Errorf("aggregate: unknown meta kind %d for %q", spec.Kind, spec.Key)
		}
		meta = append(meta, MetaEntry{Key: spec.Key, Value: v})
	}
	return meta, nil
}
