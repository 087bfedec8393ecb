package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServerDrainsInFlightRequests(t *testing.T) {
	var finished atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srvDone := make(chan error, 1)
	go func() {
		srvDone <- runServer(ctx, &http.Server{Handler: mux}, ln)
	}()

	reqDone := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err == nil {
			resp.Body.Close()
		}
		reqDone <- err
	}()

	// Let the request reach the handler, then shut down underneath it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-srvDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, finished.Load(), "shutdown returned before the in-flight request completed")
	require.NoError(t, <-reqDone)
}
