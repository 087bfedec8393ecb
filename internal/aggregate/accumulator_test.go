package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless-chicago/blockmap/internal/classify"
	"github.com/ticketless-chicago/blockmap/internal/grid"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Name:           "test",
		BlockSize:      grid.BlockFine,
		Envelope:       grid.Chicago,
		Threshold:      1,
		CoordPrecision: 4,
		Row: func(c *Cell, lat, lng float64, score int) []any {
			return []any{lat, lng, c.Count, score}
		},
		Meta: []MetaSpec{
			{Key: "date", Kind: MetaDate},
			{Key: "total", Kind: MetaTotal},
			{Key: "blocks", Kind: MetaBlocks},
		},
	}
}

func rec(lat, lng string) Record {
	return Record{RawLat: lat, RawLng: lng}
}

func TestFoldAccumulatesSameCell(t *testing.T) {
	a := NewAccumulator(testConfig(), testNow)

	require.Equal(t, Folded, a.Fold(rec("41.8781", "-87.6298")))
	require.Equal(t, Folded, a.Fold(rec("41.8785", "-87.6292")))

	assert.Equal(t, 1, a.Cells())
	assert.Equal(t, 2, a.Stats().Folded)
}

func TestFoldSkipsUnparsableCoords(t *testing.T) {
	a := NewAccumulator(testConfig(), testNow)

	assert.Equal(t, SkippedUnparsable, a.Fold(rec("", "-87.6298")))
	assert.Equal(t, SkippedUnparsable, a.Fold(rec("not-a-number", "-87.6298")))
	assert.Equal(t, SkippedOutOfBounds, a.Fold(rec("0", "0")))
	assert.Equal(t, SkippedOutOfBounds, a.Fold(rec("43.0", "-87.6298")))
	assert.Equal(t, 0, a.Cells())

	st := a.Stats()
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 2, st.Unparsable)
	assert.Equal(t, 2, st.OutOfBounds)
}

func TestFoldExcludeLabels(t *testing.T) {
	cfg := testConfig()
	cfg.ExcludeLabels = []string{"INFORMATION ONLY", "AIRCRAFT"}
	a := NewAccumulator(cfg, testNow)

	r := rec("41.8781", "-87.6298")
	r.Label = "311 INFORMATION ONLY CALL"
	assert.Equal(t, SkippedLabel, a.Fold(r))

	r.Label = "Aircraft Noise Complaint"
	assert.Equal(t, SkippedLabel, a.Fold(r))

	r.Label = "GRAFFITI REMOVAL REQUEST"
	assert.Equal(t, Folded, a.Fold(r))
}

func TestFoldClassification(t *testing.T) {
	cfg := testConfig()
	cfg.Table = &classify.Table{
		OnUnmatched: classify.Drop,
		Categories: []classify.Category{
			{Tag: "violent", Name: "Violent", Color: "#dc2626", Keywords: []string{"BATTERY"}},
		},
	}
	a := NewAccumulator(cfg, testNow)

	r := rec("41.8781", "-87.6298")
	r.Label = "DOMESTIC BATTERY"
	require.Equal(t, Folded, a.Fold(r))

	r.Label = "GAMBLING"
	assert.Equal(t, SkippedUnclassified, a.Fold(r))

	// Unclassified records never touch cell state.
	assert.Equal(t, 1, a.Cells())
	for _, c := range a.cells {
		assert.Equal(t, map[string]int{"violent": 1}, c.Categories)
	}
}

func TestWardAddressLatchFirstNonEmpty(t *testing.T) {
	a := NewAccumulator(testConfig(), testNow)

	r1 := rec("41.8781", "-87.6298")
	r1.Ward = ""
	r1.Address = ""
	r2 := rec("41.8781", "-87.6298")
	r2.Ward = "42"
	r2.Address = "100 N STATE ST"
	r3 := rec("41.8781", "-87.6298")
	r3.Ward = "43"
	r3.Address = "200 N STATE ST"

	a.Fold(r1)
	a.Fold(r2)
	a.Fold(r3)

	for _, c := range a.cells {
		assert.Equal(t, "42", c.Ward)
		assert.Equal(t, "100 N STATE ST", c.Address)
	}
}

func TestSumsAndFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Sums = []SumSpec{
		{Key: "cost", Field: "cost", Kind: ParseCurrency},
		{Key: "filled", Field: "filled", Kind: ParseInt},
	}
	cfg.Flags = []FlagSpec{
		{Key: "arrests", Match: func(r Record) bool { return r.Field("arrest") == "Y" }},
	}
	a := NewAccumulator(cfg, testNow)

	r := rec("41.8781", "-87.6298")
	r.Fields = map[string]string{"cost": "$12,345.67", "filled": "8", "arrest": "Y"}
	a.Fold(r)

	r.Fields = map[string]string{"cost": "garbage", "filled": "3.0", "arrest": "N"}
	a.Fold(r)

	for _, c := range a.cells {
		assert.InDelta(t, 12345.67, c.Num("cost"), 1e-9)
		assert.Equal(t, 11.0, c.Num("filled"))
		assert.Equal(t, 1.0, c.Num("arrests"))
	}
}

func TestRecencyWindow(t *testing.T) {
	cfg := testConfig()
	cfg.RecencyWindow = 90 * 24 * time.Hour
	a := NewAccumulator(cfg, testNow)

	inside := rec("41.8781", "-87.6298")
	inside.Timestamp = "2026-02-15T08:30:00.000"
	outside := rec("41.8781", "-87.6298")
	outside.Timestamp = "2025-06-01T08:30:00.000"
	unparsable := rec("41.8781", "-87.6298")
	unparsable.Timestamp = "sometime last week"

	require.Equal(t, Folded, a.Fold(inside))
	require.Equal(t, Folded, a.Fold(outside))
	require.Equal(t, Folded, a.Fold(unparsable))

	for _, c := range a.cells {
		assert.Equal(t, 3, c.Count)
		assert.Equal(t, 1, c.Recent)
	}
}

func TestCountsOrderIndependent(t *testing.T) {
	records := []Record{
		{RawLat: "41.8781", RawLng: "-87.6298", Fields: map[string]string{"n": "2"}},
		{RawLat: "41.8785", RawLng: "-87.6292", Fields: map[string]string{"n": "5"}},
		{RawLat: "41.9000", RawLng: "-87.7000", Fields: map[string]string{"n": "1"}},
	}
	cfg := testConfig()
	cfg.Sums = []SumSpec{{Key: "n", Field: "n", Kind: ParseInt}}

	forward := NewAccumulator(cfg, testNow)
	for _, r := range records {
		forward.Fold(r)
	}
	reversed := NewAccumulator(cfg, testNow)
	for i := len(records) - 1; i >= 0; i-- {
		reversed.Fold(records[i])
	}

	require.Equal(t, forward.Cells(), reversed.Cells())
	for key, fc := range forward.cells {
		rc := reversed.cells[key]
		require.NotNil(t, rc)
		assert.Equal(t, fc.Count, rc.Count)
		assert.Equal(t, fc.Num("n"), rc.Num("n"))
	}
}
