// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/snipcheck/internal/models"
)

// ErrNilPublisher is returned when attempting to create a publisher with nil input.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrorCategory categorizes errors for dead-letter routing and metrics.
type ErrorCategory int

const (
	ErrorCategoryUnknown ErrorCategory = iota
	ErrorCategoryConnection
	ErrorCategoryTimeout
	ErrorCategoryValidation
	ErrorCategoryDatabase
	ErrorCategoryNotFound
	ErrorCategoryExhausted
	ErrorCategoryPanic
)

// String returns the label used in metrics and the dead_letters table.
func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryConnection:
		return "connection"
	case ErrorCategoryTimeout:
		return "timeout"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryDatabase:
		return "database"
	case ErrorCategoryNotFound:
		return "not_found"
	case ErrorCategoryExhausted:
		return "exhausted"
	case ErrorCategoryPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// RetryableError is a transient failure; the delivery is redelivered.
type RetryableError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewRetryableError creates a retryable error categorized from cause.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{Message: message, Cause: cause, Category: Categorize(cause)}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error { return e.Cause }

// PermanentError is a failure that no redelivery can fix.
type PermanentError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewPermanentError creates a permanent error. Uncategorized causes are
// treated as validation failures.
func NewPermanentError(message string, cause error) *PermanentError {
	category := Categorize(cause)
	if category == ErrorCategoryUnknown {
		category = ErrorCategoryValidation
	}
	return &PermanentError{Message: message, Cause: cause, Category: category}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error { return e.Cause }

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// CategoryOf returns the category carried by err, or categorizes it.
func CategoryOf(err error) ErrorCategory {
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.Category
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Category
	}
	return Categorize(err)
}

// Categorize derives a category from sentinel errors first and the message
// text second.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, models.ErrConflict):
		return ErrorCategoryDatabase
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "connection", "connect", "refused", "reset", "network"):
		return ErrorCategoryConnection
	case containsAny(msg, "timeout", "deadline", "timed out"):
		return ErrorCategoryTimeout
	case containsAny(msg, "invalid", "validation", "malformed", "unmarshal", "parse"):
		return ErrorCategoryValidation
	case containsAny(msg, "database", "duckdb", "sql", "transaction"):
		return ErrorCategoryDatabase
	default:
		return ErrorCategoryUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a failed delivery should be redelivered.
func IsRetryable(err error) bool {
	return err != nil && !IsPermanent(err)
}
