package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPServer() *http.Server {
	return &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
}

func TestServe_StdioReturnStopsHTTP(t *testing.T) {
	srv := newTestHTTPServer()
	ran := false

	err := serve(context.Background(), srv, false, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed, "HTTP server was shut down")
}

func TestServe_StdioCancelStopsHTTP(t *testing.T) {
	srv := newTestHTTPServer()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- serve(ctx, srv, false, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}

func TestServe_StdioErrorIsReturned(t *testing.T) {
	srv := newTestHTTPServer()
	boom := errors.New("stdin closed")

	err := serve(context.Background(), srv, false, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}

func TestServe_ServerModeStopsOnCancel(t *testing.T) {
	srv := newTestHTTPServer()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- serve(ctx, srv, true, func(context.Context) error {
			t.Error("stdio must not run in server mode")
			return nil
		})
	}()
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
