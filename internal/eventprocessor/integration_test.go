// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

//go:build integration

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

func startJetStream(t *testing.T) (*EmbeddedServer, *Connection) {
	t.Helper()
	srvCfg := DefaultServerConfig()
	srvCfg.Port = -1 // random
	srvCfg.StoreDir = t.TempDir()
	srvCfg.JetStreamMaxMem = 64 << 20
	srvCfg.JetStreamMaxStore = 256 << 20

	srv, err := NewEmbeddedServer(&srvCfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	conn, err := Connect(srv.ClientURL(), "integration-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return srv, conn
}

// TestIntegration_PublishConsumeRoundTrip runs the full request and result
// path against an embedded JetStream server.
func TestIntegration_PublishConsumeRoundTrip(t *testing.T) {
	srv, conn := startJetStream(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	streamCfg := DefaultStreamConfig()
	si, err := NewStreamInitializer(conn.JS, &streamCfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}
	group := ConsumerGroupConfig{
		Durable:       "snippet-compliance",
		FilterSubject: models.TopicLintResults,
		MaxDeliver:    3,
		AckWait:       5 * time.Second,
	}
	consumer, err := si.EnsureConsumerGroup(ctx, group)
	if err != nil {
		t.Fatalf("EnsureConsumerGroup() error = %v", err)
	}
	// A second instance binds to the same group.
	if _, err := si.EnsureConsumerGroup(ctx, group); err != nil {
		t.Fatalf("second EnsureConsumerGroup() error = %v", err)
	}

	pubCfg := DefaultPublisherConfig(srv.ClientURL())
	pub, err := NewPublisher(pubCfg, logging.NewWatermillAdapter(logging.Logger()))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })

	if _, err := pub.PublishResultBatch(ctx, []byte(`{"snippetId":"s1","results":[]}`)); err != nil {
		t.Fatalf("PublishResultBatch() error = %v", err)
	}
	if _, err := pub.PublishResultBatch(ctx, []byte(`broken`)); err != nil {
		t.Fatalf("PublishResultBatch() error = %v", err)
	}

	handler := &fakeHandler{}
	store := newMemDeadLetters()
	rc, err := NewResultConsumer(NewJetStreamSource(consumer), handler, NewDeadLetterRouter(store, pub), testConsumerConfig())
	if err != nil {
		t.Fatal(err)
	}

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- rc.Run(runCtx) }()

	deadline := time.Now().Add(10 * time.Second)
	for (handler.callCount() < 1 || rc.Stats().DeadLettered < 1) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	stop()
	<-done

	if handler.callCount() != 1 {
		t.Errorf("reconciled %d batches, want 1", handler.callCount())
	}
	if dl := store.only(t); dl.Category != "validation" {
		t.Errorf("dead letter category = %s", dl.Category)
	}
}

// TestIntegration_OutageOutlastsDeadLetterThreshold keeps both the reconcile
// and the dead-letter write failing past max_deliver. The broker must keep
// redelivering so the batch is reconciled once storage recovers.
func TestIntegration_OutageOutlastsDeadLetterThreshold(t *testing.T) {
	srv, conn := startJetStream(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings := SettingsFrom(&config.NATSConfig{
		URL:           srv.ClientURL(),
		ConsumerGroup: "snippet-compliance",
		PollTimeout:   50 * time.Millisecond,
		MaxDeliver:    2,
		AckWait:       5 * time.Second,
		NakDelay:      20 * time.Millisecond,
	})

	si, err := NewStreamInitializer(conn.JS, &settings.Stream)
	if err != nil {
		t.Fatal(err)
	}
	if err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}
	consumer, err := si.EnsureConsumerGroup(ctx, settings.Group)
	if err != nil {
		t.Fatalf("EnsureConsumerGroup() error = %v", err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(srv.ClientURL()), logging.NewWatermillAdapter(logging.Logger()))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })
	if _, err := pub.PublishResultBatch(ctx, []byte(cleanBatch)); err != nil {
		t.Fatalf("PublishResultBatch() error = %v", err)
	}

	outage := errors.New("database is locked")
	handler := &fakeHandler{err: outage}
	store := newMemDeadLetters()
	store.setSaveErr(outage)

	rc, err := NewResultConsumer(NewJetStreamSource(consumer), handler, NewDeadLetterRouter(store, nil), settings.Consumer)
	if err != nil {
		t.Fatal(err)
	}
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- rc.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	waitFor(t, 10*time.Second, func() bool { return rc.Stats().Retried > int64(settings.Consumer.MaxDeliver)+1 })

	handler.setErr(nil)
	store.setSaveErr(nil)

	waitFor(t, 10*time.Second, func() bool { return handler.callCount()+store.count() > 0 })
	if handler.callCount() != 1 {
		t.Errorf("reconciled %d batches, want 1", handler.callCount())
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
