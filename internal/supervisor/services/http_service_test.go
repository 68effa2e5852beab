// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	listens     atomic.Int32
	shutdowns   atomic.Int32
	started     chan struct{}
	stop        chan struct{}
	stopOnce    sync.Once
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		started: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	f.listens.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestNewHTTPServerService_Timeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{5 * time.Second, 5 * time.Second},
		{0, defaultShutdownTimeout},
		{-time.Second, defaultShutdownTimeout},
	}
	for _, tt := range tests {
		svc := NewHTTPServerService(newFakeHTTPServer(), tt.in)
		if svc.shutdownTimeout != tt.want {
			t.Errorf("NewHTTPServerService(%v) timeout = %v, want %v", tt.in, svc.shutdownTimeout, tt.want)
		}
	}
	if got := NewHTTPServerService(newFakeHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	server := newFakeHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-server.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if server.listens.Load() != 1 || server.shutdowns.Load() != 1 {
		t.Errorf("listens = %d, shutdowns = %d", server.listens.Load(), server.shutdowns.Load())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	bindErr := errors.New("bind: address already in use")
	server := newFakeHTTPServer()
	server.listenErr = bindErr

	err := NewHTTPServerService(server, time.Second).Serve(context.Background())
	if !errors.Is(err, bindErr) {
		t.Errorf("Serve() error = %v, want %v", err, bindErr)
	}
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	shutdownErr := errors.New("shutdown timeout")
	server := newFakeHTTPServer()
	server.shutdownErr = shutdownErr
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	<-server.started
	cancel()

	if err := <-errCh; !errors.Is(err, shutdownErr) {
		t.Errorf("Serve() error = %v, want %v", err, shutdownErr)
	}
}

func TestHTTPServerService_ClosedWithoutCancelIsFailure(t *testing.T) {
	server := newFakeHTTPServer()
	server.listenErr = http.ErrServerClosed

	err := NewHTTPServerService(server, time.Second).Serve(context.Background())
	if err == nil {
		t.Error("expected error when the server closes on its own")
	}
}
