package aggregate

import (
	"time"
)

// folder is the shared shape of the grid and camera accumulators.
type folder interface {
	Fold(r Record) Outcome
	Stats() Stats
	Summarize(now time.Time) (*Summary, error)
}

// drain folds every record from the stream, then surfaces the source's
// terminal error if any. The summary is built from whatever was consumed:
// a mid-stream abort still yields a valid (smaller) aggregation, and the
// caller decides whether a non-nil source error fails the dataset.
func drain(records <-chan Record, errc <-chan error, f folder, now time.Time) (*Summary, Stats, error) {
	for r := range records {
		f.Fold(r)
	}

	var srcErr error
	if errc != nil {
		srcErr = <-errc
	}

	summary, err := f.Summarize(now)
	if err != nil {
		return nil, f.Stats(), err
	}
	return summary, f.Stats(), srcErr
}

// Run consumes a lazy record stream through the grid accumulator and returns
// the dataset summary. There is a hard phase boundary: the fold mutates,
// Summarize only reads, and they never interleave.
func Run(records <-chan Record, errc <-chan error, cfg Config, now time.Time) (*Summary, Stats, error) {
	return drain(records, errc, NewAccumulator(cfg, now), now)
}

// RunCameras is Run for the per-camera datasets.
func RunCameras(records <-chan Record, errc <-chan error, cfg CameraConfig, now time.Time) (*Summary, Stats, error) {
	return drain(records, errc, NewCameraAccumulator(cfg), now)
}
