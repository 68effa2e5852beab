// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// countingService runs until canceled, failing the first failFirst starts.
type countingService struct {
	name      string
	failFirst int32
	starts    atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failFirst {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor should not be nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}

	custom, _ := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
	if custom.config.FailureBackoff != time.Second || custom.config.FailureThreshold != 5 {
		t.Errorf("config = %+v", custom.config)
	}
}

func TestSupervisorTree_StartsBothLayers(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	consumer := &countingService{name: "result-consumer"}
	server := &countingService{name: "http-server"}
	tree.Add(LayerMessaging, consumer)
	tree.Add(LayerAPI, server)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return consumer.starts.Load() >= 1 && server.starts.Load() >= 1 })

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &countingService{name: "flaky", failFirst: 2}
	stable := &countingService{name: "stable"}
	tree.Add(LayerMessaging, flaky)
	tree.Add(LayerAPI, stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return flaky.starts.Load() >= 3 })
	if stable.starts.Load() != 1 {
		t.Errorf("stable service started %d times, want 1", stable.starts.Load())
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_Remove(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := &countingService{name: "removable"}
	token := tree.Add(LayerMessaging, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return svc.starts.Load() >= 1 })
	if err := tree.Remove(LayerMessaging, token); err != nil {
		t.Errorf("Remove() error = %v", err)
	}

	cancel()
	<-errCh
}

func TestNewSupervisorTree_RequiresLogger(t *testing.T) {
	if _, err := NewSupervisorTree(nil, TreeConfig{}); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestLayer_String(t *testing.T) {
	if LayerMessaging.String() != "messaging-layer" || LayerAPI.String() != "api-layer" {
		t.Errorf("layer names = %s, %s", LayerMessaging, LayerAPI)
	}
	if Layer(7).String() != "layer(7)" {
		t.Errorf("unknown layer = %s", Layer(7))
	}
}
