package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
	"github.com/ticketless-chicago/blockmap/internal/grid"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRegistryIsComplete(t *testing.T) {
	want := []string{
		"requests", "crimes", "crashes", "violations", "potholes",
		"permits", "licenses", "redlight", "speed",
	}
	assert.Equal(t, want, Names())

	for _, c := range All() {
		assert.NotEmpty(t, c.Title, c.Name)
		assert.NotEmpty(t, c.OutputFile, c.Name)
		assert.NotEmpty(t, c.Soda.DatasetID, c.Name)
		switch c.Kind {
		case Grid:
			assert.NotZero(t, c.Agg.BlockSize, c.Name)
			assert.NotZero(t, c.Agg.Threshold, c.Name)
			assert.NotNil(t, c.Agg.Row, c.Name)
		case Camera:
			assert.NotEmpty(t, c.Cam.IDField, c.Name)
			assert.NotZero(t, c.Cam.MinViolations, c.Name)
		}
	}
}

func TestGet(t *testing.T) {
	c, err := Get("crimes")
	require.NoError(t, err)
	assert.Equal(t, "ijzp-q8t2", c.Soda.DatasetID)

	_, err = Get("parking")
	assert.Error(t, err)
}

func TestBlockSizes(t *testing.T) {
	fine := []string{"requests", "crimes", "crashes", "violations"}
	coarse := []string{"potholes", "permits", "licenses"}
	for _, name := range fine {
		c, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, grid.BlockFine, c.Agg.BlockSize, name)
	}
	for _, name := range coarse {
		c, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, grid.BlockCoarse, c.Agg.BlockSize, name)
	}
}

func TestRequestsClassification(t *testing.T) {
	c, err := Get("requests")
	require.NoError(t, err)

	tag, ok := c.Agg.Table.Classify("Pothole in Street Complaint")
	require.True(t, ok)
	assert.Equal(t, "infrastructure", tag)

	tag, ok = c.Agg.Table.Classify("RODENT BAITING/RAT COMPLAINT")
	require.True(t, ok)
	assert.Equal(t, "pests", tag)

	// Unmatched 311 types drop instead of falling back to other.
	_, ok = c.Agg.Table.Classify("YARD WASTE PICK-UP REQUEST")
	assert.False(t, ok)
}

func TestCrimesClassificationAndScore(t *testing.T) {
	c, err := Get("crimes")
	require.NoError(t, err)

	tag, ok := c.Agg.Table.Classify("CRIMINAL SEXUAL ASSAULT")
	require.True(t, ok)
	assert.Equal(t, "violent", tag)

	// Substring matching: battery variants all land in violent.
	tag, ok = c.Agg.Table.Classify("DOMESTIC BATTERY SIMPLE")
	require.True(t, ok)
	assert.Equal(t, "violent", tag)

	// Anything unmatched keeps the record under other.
	tag, ok = c.Agg.Table.Classify("GAMBLING")
	require.True(t, ok)
	assert.Equal(t, "other", tag)

	cell := &aggregate.Cell{Count: 2, Categories: map[string]int{"violent": 1, "property": 1}}
	assert.Equal(t, 100, c.Agg.Score(cell))

	cell = &aggregate.Cell{Count: 4, Categories: map[string]int{"drugs": 4}}
	assert.Equal(t, 5, c.Agg.Score(cell))
}

func TestCrashesScore(t *testing.T) {
	c, err := Get("crashes")
	require.NoError(t, err)

	// 5 crashes, 4 injuries, 1 fatal: 20 + 0.8*30 + 5/50*30 = 47.
	cell := &aggregate.Cell{
		Count: 5,
		Nums:  map[string]float64{"injuries": 4, "fatal": 1},
	}
	assert.Equal(t, 47, c.Agg.Score(cell))

	cell = &aggregate.Cell{Count: 0, Nums: map[string]float64{}}
	assert.Equal(t, 0, c.Agg.Score(cell))
}

func TestViolationsFlags(t *testing.T) {
	c, err := Get("violations")
	require.NoError(t, err)
	flags := map[string]func(aggregate.Record) bool{}
	for _, f := range c.Agg.Flags {
		flags[f.Key] = f.Match
	}

	r := aggregate.Record{Fields: map[string]string{
		"description": "Repair or replace defective smoke detectors",
		"code":        "CN190019",
		"status":      "OPEN",
	}}
	assert.True(t, flags["high_risk"](r))
	assert.True(t, flags["open"](r))

	r = aggregate.Record{Fields: map[string]string{
		"description": "Post name and phone of owner",
		"code":        "CN061014",
		"status":      "COMPLIED",
	}}
	assert.False(t, flags["high_risk"](r))
	assert.False(t, flags["open"](r))
}

func TestPotholesSortsByFilled(t *testing.T) {
	c, err := Get("potholes")
	require.NoError(t, err)
	assert.Equal(t, "filled", c.Agg.SortKey)

	// 40 potholes filled across 3 requests scores 80.
	cell := &aggregate.Cell{Count: 3, Nums: map[string]float64{"filled": 40}}
	assert.Equal(t, 80, c.Agg.Score(cell))
}

func TestPermitsScoreAndRow(t *testing.T) {
	c, err := Get("permits")
	require.NoError(t, err)

	// 10 permits, $500k reported: 10/100*50 + 0.5*50 = 30.
	cell := &aggregate.Cell{
		Count:      10,
		Categories: map[string]int{"renovation": 10},
		Ward:       "42",
		Address:    "",
		Nums:       map[string]float64{"cost": 500_000},
	}
	assert.Equal(t, 30, c.Agg.Score(cell))

	row := c.Agg.Row(cell, 41.88, -87.63, 30)
	require.Len(t, row, 9)
	assert.Equal(t, 500000, row[7])
}

func TestPermitsTotalCostMetaKeepsCents(t *testing.T) {
	c, err := Get("permits")
	require.NoError(t, err)

	var spec aggregate.MetaSpec
	for _, m := range c.Agg.Meta {
		if m.Key == "total_cost" {
			spec = m
		}
	}
	// Rows truncate cost to whole dollars; the citywide rollup does not.
	assert.Equal(t, aggregate.MetaSumFloat, spec.Kind)
	assert.Equal(t, "cost", spec.Num)
}

func TestLicensesActiveFlag(t *testing.T) {
	c, err := Get("licenses")
	require.NoError(t, err)
	var active func(aggregate.Record) bool
	for _, f := range c.Agg.Flags {
		if f.Key == "active" {
			active = f.Match
		}
	}
	require.NotNil(t, active)

	for _, status := range []string{"AAI", "AAC", "ACTIVE", "ISSUED", "License Issued"} {
		r := aggregate.Record{Fields: map[string]string{"status": status}}
		assert.True(t, active(r), status)
	}
	r := aggregate.Record{Fields: map[string]string{"status": "REV - Revoked"}}
	assert.False(t, active(r))
}

func TestRowMapComposesAddressParts(t *testing.T) {
	c, err := Get("crashes")
	require.NoError(t, err)

	row := map[string]string{
		"latitude":  "41.88",
		"longitude": "-87.63",
		"street_no": "1200", "street_direction": "S", "street_name": "WABASH AVE",
		"injuries_total": "2", "injuries_fatal": "0", "hit_and_run_i": "Y",
	}
	r := c.Soda.Map.Record(func(col string) string { return row[col] })
	assert.Equal(t, "1200 S WABASH AVE", r.Address)
	assert.Equal(t, "2", r.Field("injuries_total"))

	// Missing middle parts collapse cleanly at the edges.
	delete(row, "street_no")
	delete(row, "street_direction")
	r = c.Soda.Map.Record(func(col string) string { return row[col] })
	assert.Equal(t, "WABASH AVE", r.Address)
}

func TestCameraConfigs(t *testing.T) {
	red, err := Get("redlight")
	require.NoError(t, err)
	assert.Equal(t, Camera, red.Kind)
	assert.Equal(t, 100, red.Cam.MinViolations)
	assert.Equal(t, 5, red.Cam.CoordPrecision)
	assert.Equal(t, "intersection", red.Cam.IntersectionField)

	speed, err := Get("speed")
	require.NoError(t, err)
	assert.Equal(t, Camera, speed.Kind)
	assert.Empty(t, speed.Cam.IntersectionField)
}

func TestEndToEndRequests(t *testing.T) {
	c, err := Get("requests")
	require.NoError(t, err)

	a := aggregate.NewAccumulator(c.Agg, testNow)
	base := aggregate.Record{
		Label:     "GRAFFITI REMOVAL REQUEST",
		RawLat:    "41.8781",
		RawLng:    "-87.6298",
		Ward:      "42",
		Address:   "100 N STATE ST",
		Timestamp: "2026-02-20T09:00:00.000",
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, aggregate.Folded, a.Fold(base))
	}

	s, err := a.Summarize(testNow)
	require.NoError(t, err)
	require.Len(t, s.Data, 1)

	row := s.Data[0]
	require.Len(t, row, 8)
	assert.Equal(t, 41.8780, row[0])
	assert.Equal(t, 3, row[2])
	assert.Equal(t, 6, row[3]) // 3/50*100
	assert.Equal(t, map[string]int{"sanitation": 3}, row[4])
	assert.Equal(t, "42", row[5])
	assert.Equal(t, 3, row[7])
}
