// Package grid quantizes raw coordinates onto the fixed aggregation grid.
package grid

import (
	"math"
	"strconv"
)

// Block sizes in degrees. 0.002deg is roughly 220m, about 1.5 Chicago blocks.
// Permit and license datasets use the coarser grid.
const (
	BlockFine   = 0.002
	BlockCoarse = 0.004
)

// Envelope is an open-interval bounding box: a point is inside only when
// strictly between both bounds on both axes.
type Envelope struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Chicago is the metro envelope every dataset validates against.
var Chicago = Envelope{MinLat: 41.6, MaxLat: 42.1, MinLng: -88.0, MaxLng: -87.5}

// Contains reports whether the point lies strictly inside the envelope.
func (e Envelope) Contains(lat, lng float64) bool {
	return lat > e.MinLat && lat < e.MaxLat && lng > e.MinLng && lng < e.MaxLng
}

// Key identifies a grid cell. Two raw coordinate pairs map to the same cell
// iff their quantized pairs are equal.
type Key struct {
	Lat float64
	Lng float64
}

// Quantize snaps a coordinate pair to the nearest multiple of blockSize.
// Rounding is half away from zero (math.Round), never half to even: banker's
// rounding would shift cell boundaries between runs of different
// implementations and break output determinism.
func Quantize(lat, lng, blockSize float64) Key {
	return Key{
		Lat: math.Round(lat/blockSize) * blockSize,
		Lng: math.Round(lng/blockSize) * blockSize,
	}
}

// Resolution classifies a raw coordinate pair. Rejections are a silent-skip
// policy, not errors: the fold step drops the record and moves on.
type Resolution int

const (
	Accepted Resolution = iota
	RejectedUnparsable
	RejectedOutOfBounds
)

// Resolve parses a raw coordinate pair, validates it against the envelope,
// and quantizes it. The returned key is meaningful only when the resolution
// is Accepted.
func Resolve(rawLat, rawLng string, env Envelope, blockSize float64) (Key, Resolution) {
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return Key{}, RejectedUnparsable
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return Key{}, RejectedUnparsable
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return Key{}, RejectedUnparsable
	}
	if !env.Contains(lat, lng) {
		return Key{}, RejectedOutOfBounds
	}
	return Quantize(lat, lng, blockSize), Accepted
}

// RoundCoord rounds a coordinate for serialization: 4 decimal places for grid
// datasets, 5 for camera datasets. This is independent of, and coarser than,
// the grid quantization step.
func RoundCoord(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
