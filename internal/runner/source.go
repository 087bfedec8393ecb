package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
	"github.com/ticketless-chicago/blockmap/internal/dataset"
	"github.com/ticketless-chicago/blockmap/internal/fetcher"
	"github.com/ticketless-chicago/blockmap/internal/socrata"
)

// Source yields one dataset's record stream. The error channel carries at
// most one terminal error after the record channel closes.
type Source func(ctx context.Context, ds dataset.Config) (<-chan aggregate.Record, <-chan error, error)

// SodaSource streams datasets from the portal's SODA API, restricted to the
// trailing lookback window for datasets that declare a date field.
func SodaSource(client *socrata.Client, lookback time.Duration, now time.Time) Source {
	return func(ctx context.Context, ds dataset.Config) (<-chan aggregate.Record, <-chan error, error) {
		since := time.Time{}
		if lookback > 0 {
			since = now.Add(-lookback)
		}
		records, errc := client.Records(ctx, ds.Soda, since)
		return records, errc, nil
	}
}

// CSVSource streams datasets from bulk export files in dir. Missing files
// are a dataset-level failure, not a silent skip.
func CSVSource(dir string) Source {
	return func(ctx context.Context, ds dataset.Config) (<-chan aggregate.Record, <-chan error, error) {
		if ds.CSV.File == "" {
			return nil, nil, eris.Errorf("runner: dataset %s has no bulk export", ds.Name)
		}
		path := filepath.Join(dir, ds.CSV.File)
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "runner: open %s", path)
		}

		headerCh := make(chan []string, 1)
		rows, csvErrc := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
			HasHeader: true,
			HeaderCh:  headerCh,
		})

		out := make(chan aggregate.Record, 256)
		errc := make(chan error, 1)
		go func() {
			defer close(out)
			defer close(errc)
			defer f.Close() //nolint:errcheck

			var index map[string]int
			var terminal error
			haveTerminal := false
			select {
			case header := <-headerCh:
				index = headerIndex(header)
			case err := <-csvErrc:
				// The producer already finished: a small file's rows all
				// fit in the stream buffer, so the terminal error is ready
				// while the header still sits in its own buffer. Take the
				// header if one was read; only a headerless stream means
				// the file is empty or its first line is unreadable.
				select {
				case header := <-headerCh:
					index = headerIndex(header)
					terminal, haveTerminal = err, true
				default:
					errc <- err
					return
				}
			case <-ctx.Done():
				// Drain so the CSV goroutine can exit.
				for range rows {
				}
				<-csvErrc
				errc <- eris.Wrap(ctx.Err(), "runner: csv cancelled")
				return
			}

			for row := range rows {
				get := func(col string) string {
					i, ok := index[col]
					if !ok || i >= len(row) {
						return ""
					}
					return row[i]
				}
				select {
				case out <- ds.CSV.Map.Record(get):
				case <-ctx.Done():
					for range rows {
					}
					<-csvErrc
					errc <- eris.Wrap(ctx.Err(), "runner: csv cancelled")
					return
				}
			}
			if !haveTerminal {
				terminal = <-csvErrc
			}
			errc <- terminal
		}()

		return out, errc, nil
	}
}

// headerIndex maps trimmed header names to column positions. The first
// column of portal exports sometimes carries a BOM.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	return index
}
