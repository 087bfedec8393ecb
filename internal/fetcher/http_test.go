package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"sr_number":"SR26-1"}]`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/resource/v6vf-nfxy.json")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `[{"sr_number":"SR26-1"}]`, string(data))
}

func TestDownloadSendsExtraHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-App-Token"))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Timeout: 5 * time.Second,
		Headers: map[string]string{"X-App-Token": "secret-token"},
	})
	body, err := f.Download(context.Background(), srv.URL+"/resource/x.json")
	require.NoError(t, err)
	body.Close()
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Download(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(data))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Download(context.Background(), srv.URL+"/down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
}

func TestRateLimiterRespected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Timeout: 5 * time.Second,
		RateLimiters: map[string]*rate.Limiter{
			"unused.example.org": rate.NewLimiter(1, 1),
		},
	})

	// Unknown hosts fall back to the permissive default limiter.
	body, err := f.Download(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	body.Close()
}

func TestConfiguredRateSeedsAdaptiveLimiter(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{
			"data.example.org": rate.NewLimiter(2, 3),
		},
	})

	l := f.adaptiveLimiters["data.example.org"]
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(2), l.Limit())

	// Configured limiters replace the built-in defaults entirely.
	assert.Nil(t, f.adaptiveLimiters["data.cityofchicago.org"])
}

func TestDefaultAdaptiveLimitersWhenUnconfigured(t *testing.T) {
	f := newTestFetcher()
	l := f.adaptiveLimiters["data.cityofchicago.org"]
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(5), l.Limit())
}

func TestAdaptiveLimiter(t *testing.T) {
	l := NewAdaptiveLimiter(10, 10)
	assert.Equal(t, rate.Limit(10), l.Limit())

	l.OnRateLimit()
	assert.Equal(t, rate.Limit(5), l.Limit())

	// Repeated 429s bottom out at a quarter of the initial rate.
	for range 10 {
		l.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), l.Limit())

	// Successes climb back toward 2x initial.
	for range 50 {
		l.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), l.Limit())
}
