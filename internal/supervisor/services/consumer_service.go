// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package services

import (
	"context"
	"errors"
	"fmt"
)

// ConsumerRunner is a blocking poll loop. Satisfied by
// *eventprocessor.ResultConsumer.
type ConsumerRunner interface {
	Run(ctx context.Context) error
	Name() string
}

// ConsumerService supervises a result consumer. Run returning before the
// context is done counts as a failure, so suture restarts the loop.
type ConsumerService struct {
	consumer ConsumerRunner
}

// NewConsumerService wraps consumer.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{consumer: consumer}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("consumer loop exited")
	}
	return fmt.Errorf("consumer %s: %w", s.consumer.Name(), err)
}

// String names the service in supervisor logs.
func (s *ConsumerService) String() string {
	return "result-consumer:" + s.consumer.Name()
}
