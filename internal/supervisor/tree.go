// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer selects a child supervisor of the tree.
type Layer int

const (
	// LayerMessaging runs the result consumer.
	LayerMessaging Layer = iota
	// LayerAPI runs the HTTP server.
	LayerAPI
)

func (l Layer) String() string {
	switch l {
	case LayerMessaging:
		return "messaging-layer"
	case LayerAPI:
		return "api-layer"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// TreeConfig tunes restart backoff. Zero fields take DefaultTreeConfig values.
type TreeConfig struct {
	// FailureThreshold is how many decayed failures trigger backoff.
	FailureThreshold float64
	// FailureDecay is the failure half-life in seconds.
	FailureDecay    float64
	FailureBackoff  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig mirrors suture's defaults with a 10s stop timeout.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	def := DefaultTreeConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = def.FailureDecay
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = def.FailureBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree is the root "snipcheck" supervisor and its layers.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	config TreeConfig
}

// NewSupervisorTree creates a tree that reports restarts and failures to logger.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, fmt.Errorf("supervisor: logger is required")
	}
	config = config.withDefaults()

	// Children inherit the root's hook when added.
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	t := &SupervisorTree{
		root:   suture.New("snipcheck", config.spec(hook)),
		layers: make(map[Layer]*suture.Supervisor, 2),
		config: config,
	}
	for _, l := range []Layer{LayerMessaging, LayerAPI} {
		child := suture.New(l.String(), config.spec(nil))
		t.root.Add(child)
		t.layers[l] = child
	}
	return t, nil
}

// Add starts svc under layer. It panics on an unknown layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	return t.layer(layer).Add(svc)
}

// Remove stops svc and removes it from layer.
func (t *SupervisorTree) Remove(layer Layer, token suture.ServiceToken) error {
	return t.layer(layer).Remove(token)
}

func (t *SupervisorTree) layer(l Layer) *suture.Supervisor {
	s, ok := t.layers[l]
	if !ok {
		panic("supervisor: unknown " + l.String())
	}
	return s
}

func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// ServeBackground runs the tree until ctx ends. The channel yields the
// result of the root's Serve.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
