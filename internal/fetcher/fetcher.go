// Package fetcher downloads data from the Chicago Data Portal and streams
// CSV and JSON payloads without buffering whole files in memory.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
