// Package socrata implements a streaming client for the Chicago Data
// Portal's SODA API.
package socrata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ticketless-chicago/blockmap/internal/aggregate"
	"github.com/ticketless-chicago/blockmap/internal/dataset"
	"github.com/ticketless-chicago/blockmap/internal/fetcher"
	"github.com/ticketless-chicago/blockmap/internal/resilience"
)

// Client pages through SODA resources and lifts rows into records.
type Client struct {
	fetch    fetcher.Fetcher
	baseURL  string
	pageSize int
	retry    resilience.RetryConfig
}

// NewClient creates a SODA client. pageSize is the $limit per request.
func NewClient(f fetcher.Fetcher, baseURL string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 50000
	}
	return &Client{
		fetch:    f,
		baseURL:  baseURL,
		pageSize: pageSize,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// pageURL builds the query for one page. Rows are ordered by :id so that
// $offset paging is stable while the portal mutates the dataset underneath.
func (c *Client) pageURL(spec dataset.SodaSpec, since time.Time, offset int) string {
	q := url.Values{}
	if len(spec.Select) > 0 {
		sel := spec.Select[0]
		for _, col := range spec.Select[1:] {
			sel += "," + col
		}
		q.Set("$select", sel)
	}

	where := ""
	if spec.DateField != "" && !since.IsZero() {
		where = fmt.Sprintf("%s > '%s'", spec.DateField, since.Format("2006-01-02T15:04:05"))
	}
	if spec.RequireCoords {
		if where != "" {
			where += " AND "
		}
		where += "latitude IS NOT NULL"
	}
	if where != "" {
		q.Set("$where", where)
	}

	q.Set("$order", ":id")
	q.Set("$limit", strconv.Itoa(c.pageSize))
	q.Set("$offset", strconv.Itoa(offset))

	return fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, spec.DatasetID, q.Encode())
}

// fetchPage downloads and fully decodes one page. The decode happens inside
// the retry so a connection dropped mid-body retries the whole page rather
// than yielding a silently truncated one.
func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]map[string]any, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("socrata", "fetch page")
	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]map[string]any, error) {
		body, err := c.fetch.Download(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck

		rowCh, errCh := fetcher.DecodeJSONArray[map[string]any](ctx, body)
		rows := make([]map[string]any, 0, 1024)
		for row := range rowCh {
			rows = append(rows, row)
		}
		if err := <-errCh; err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		return rows, nil
	})
}

// Records streams every row of the resource as records. The error channel
// carries at most one terminal error after the record channel closes; a nil
// terminal error means the stream completed.
func (c *Client) Records(ctx context.Context, spec dataset.SodaSpec, since time.Time) (<-chan aggregate.Record, <-chan error) {
	out := make(chan aggregate.Record, 256)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		total := 0
		for offset := 0; ; offset += c.pageSize {
			page, err := c.fetchPage(ctx, c.pageURL(spec, since, offset))
			if err != nil {
				errc <- eris.Wrapf(err, "socrata: fetch %s offset %d", spec.DatasetID, offset)
				return
			}

			for _, row := range page {
				r := spec.Map.Record(func(col string) string {
					return stringValue(row[col])
				})
				select {
				case out <- r:
				case <-ctx.Done():
					errc <- eris.Wrap(ctx.Err(), "socrata: stream cancelled")
					return
				}
			}

			total += len(page)
			zap.L().Debug("fetched page",
				zap.String("dataset", spec.DatasetID),
				zap.Int("offset", offset),
				zap.Int("rows", len(page)),
			)

			// A short page is the last page.
			if len(page) < c.pageSize {
				break
			}
		}
		zap.L().Info("dataset stream complete",
			zap.String("dataset", spec.DatasetID),
			zap.Int("rows", total),
		)
		errc <- nil
	}()

	return out, errc
}

// stringValue renders a SODA JSON value as a string. The portal returns most
// columns as strings but numbers and booleans appear in some datasets.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
