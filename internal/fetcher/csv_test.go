package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rows <-chan []string, errc <-chan error) [][]string {
	t.Helper()
	var out [][]string
	for row := range rows {
		out = append(out, row)
	}
	require.NoError(t, <-errc)
	return out
}

func TestStreamCSVWithHeader(t *testing.T) {
	input := "SR_TYPE,LATITUDE,LONGITUDE\nGRAFFITI,41.88,-87.63\nPOTHOLE,41.90,-87.70\n"
	headerCh := make(chan []string, 1)

	rows, errc := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	got := collectRows(t, rows, errc)

	assert.Equal(t, []string{"SR_TYPE", "LATITUDE", "LONGITUDE"}, <-headerCh)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"GRAFFITI", "41.88", "-87.63"}, got[0])
}

func TestStreamCSVTrimSpace(t *testing.T) {
	input := "a, b ,c \n"
	rows, errc := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true})
	got := collectRows(t, rows, errc)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b", "c"}, got[0])
}

func TestStreamCSVRaggedRows(t *testing.T) {
	input := "a,b,c\nd,e\nf,g,h,i\n"
	rows, errc := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	got := collectRows(t, rows, errc)
	require.Len(t, got, 3)
	assert.Len(t, got[1], 2)
	assert.Len(t, got[2], 4)
}

func TestStreamCSVMalformed(t *testing.T) {
	input := "a,b\n\"unterminated,1\n"
	rows, errc := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	for range rows {
	}
	assert.Error(t, <-errc)
}

func TestStreamCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, errc := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	for range rows {
	}
	assert.Error(t, <-errc)
}
