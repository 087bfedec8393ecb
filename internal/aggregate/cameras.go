package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/ticketless-chicago/blockmap/internal/grid"
)

// CameraConfig parameterizes the per-camera aggregation used by the red-light
// and speed violation datasets. Cameras are identities of their own, not grid
// cells: monthly violation rows for one camera id are summed regardless of
// small coordinate jitter between rows.
type CameraConfig struct {
	Name              string
	IDField           string
	ViolationsField   string
	AddressField      string
	IntersectionField string

	// MinViolations filters out cameras without a significant total.
	MinViolations int
	// CoordPrecision is 5 for camera datasets: camera points are exact
	// installations, not block centroids.
	CoordPrecision int
}

type camera struct {
	id           string
	violations   int
	lat          float64
	lng          float64
	address      string
	intersection string
}

// CameraAccumulator folds monthly per-camera violation rows. Unlike the grid
// accumulator, location fields take the last row's value: every row for a
// camera id carries the same installation point, so there is nothing to latch.
type CameraAccumulator struct {
	cfg     CameraConfig
	cameras map[string]*camera
	stats   Stats
}

// NewCameraAccumulator creates a camera accumulator for one run.
func NewCameraAccumulator(cfg CameraConfig) *CameraAccumulator {
	return &CameraAccumulator{
		cfg:     cfg,
		cameras: make(map[string]*camera),
	}
}

// Fold processes one violation row. Rows without a camera id, a positive
// violation count, or a nonzero coordinate pair are skipped silently.
func (a *CameraAccumulator) Fold(r Record) Outcome {
	o := a.fold(r)
	a.stats.record(o)
	return o
}

func (a *CameraAccumulator) fold(r Record) Outcome {
	id := r.Field(a.cfg.IDField)
	if id == "" {
		return SkippedUnparsable
	}
	violations := int(parseNumeric(r.Field(a.cfg.ViolationsField), ParseInt))
	if violations <= 0 {
		return SkippedUnparsable
	}
	lat, err := strconv.ParseFloat(r.RawLat, 64)
	if err != nil {
		return SkippedUnparsable
	}
	lng, err := strconv.ParseFloat(r.RawLng, 64)
	if err != nil {
		return SkippedUnparsable
	}
	if lat == 0 || lng == 0 {
		return SkippedOutOfBounds
	}

	c := a.cameras[id]
	if c == nil {
		c = &camera{id: id}
		a.cameras[id] = c
	}
	c.violations += violations
	c.lat = lat
	c.lng = lng
	c.address = r.Field(a.cfg.AddressField)
	if a.cfg.IntersectionField != "" {
		c.intersection = r.Field(a.cfg.IntersectionField)
	}
	return Folded
}

// Stats returns the fold outcome counters so far.
func (a *CameraAccumulator) Stats() Stats {
	return a.stats
}

// Summarize filters, orders, and serializes the per-camera totals. Rows are
// [lat, lng, violations, cameraID, location] sorted by violations descending,
// camera id ascending on ties.
func (a *CameraAccumulator) Summarize(now time.Time) (*Summary, error) {
	retained := make([]*camera, 0, len(a.cameras))
	for _, c := range a.cameras {
		if c.violations >= a.cfg.MinViolations {
			retained = append(retained, c)
		}
	}
	sort.Slice(retained, func(i, j int) bool {
		if retained[i].violations != retained[j].violations {
			return retained[i].violations > retained[j].violations
		}
		return retained[i].id < retained[j].id
	})

	total := 0
	data := make([][]any, 0, len(retained))
	for _, c := range retained {
		total += c.violations
		location := c.intersection
		if location == "" {
			location = c.address
		}
		data = append(data, []any{
			grid.RoundCoord(c.lat, a.cfg.CoordPrecision),
			grid.RoundCoord(c.lng, a.cfg.CoordPrecision),
			c.violations,
			c.id,
			location,
		})
	}

	meta := MetaBlock{
		{Key: "date", Value: now.Format("2006-01-02")},
		{Key: "cameras", Value: len(retained)},
		{Key: "total_violations", Value: total},
	}
	return &Summary{Meta: meta, Data: data}, nil
}
