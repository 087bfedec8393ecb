package aggregate

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(records []Record, terminal error) (<-chan Record, <-chan error) {
	out := make(chan Record)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		for _, r := range records {
			out <- r
		}
		errc <- terminal
	}()
	return out, errc
}

func TestRunConsumesStream(t *testing.T) {
	records := []Record{
		rec("41.8781", "-87.6298"),
		rec("41.8781", "-87.6298"),
		rec("bad", "-87.6298"),
	}
	out, errc := stream(records, nil)

	s, stats, err := Run(out, errc, testConfig(), testNow)
	require.NoError(t, err)
	require.Len(t, s.Data, 1)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Folded)
	assert.Equal(t, 1, stats.Unparsable)
}

func TestRunSurfacesSourceError(t *testing.T) {
	records := []Record{rec("41.8781", "-87.6298")}
	out, errc := stream(records, eris.New("connection reset"))

	// A mid-stream abort still yields the partial summary; the caller
	// decides the summary is unusable.
	s, stats, err := Run(out, errc, testConfig(), testNow)
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, stats.Folded)
}

func TestRunCameras(t *testing.T) {
	records := []Record{
		camRec("CAM-1", "80", "41.878", "-87.63"),
		camRec("CAM-1", "90", "41.878", "-87.63"),
	}
	out, errc := stream(records, nil)

	s, stats, err := RunCameras(out, errc, cameraCfg(), testNow)
	require.NoError(t, err)
	require.Len(t, s.Data, 1)
	assert.Equal(t, 170, s.Data[0][2])
	assert.Equal(t, 2, stats.Folded)
}
