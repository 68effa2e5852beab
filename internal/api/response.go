// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snipcheck/internal/authz"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
	"github.com/tomtom215/snipcheck/internal/orchestrator"
	"github.com/tomtom215/snipcheck/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "AUTHENTICATION_ERROR"
	ErrCodeForbidden          = "AUTHORIZATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodePublishFailed      = "PUBLISH_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, started time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// respondError sends an error response. err, when set, is logged but never
// returned to the client.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	respondErrorWithDetails(w, status, code, message, nil, err)
}

func respondErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		event := logging.Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Error()
		}
		event.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondServiceError maps a domain error onto a status code and error code.
func respondServiceError(w http.ResponseWriter, err error) {
	respondServiceErrorWithDetails(w, err, nil)
}

func respondServiceErrorWithDetails(w http.ResponseWriter, err error, details map[string]interface{}) {
	status, code, message := classifyError(err)
	respondErrorWithDetails(w, status, code, message, details, err)
}

func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, models.ErrInvalidRuleValue):
		return http.StatusBadRequest, ErrCodeValidation, err.Error()
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden, "Access to snippet denied"
	case errors.Is(err, orchestrator.ErrPublishFailed), errors.Is(err, models.ErrPublisherClosed):
		return http.StatusBadGateway, ErrCodePublishFailed, "Failed to publish evaluation request"
	case errors.Is(err, authz.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Authorization service unavailable"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, ErrCodeConflict, "Concurrent update, retry the request"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "Internal server error"
	}
}

// validateRequest returns nil or the VALIDATION_ERROR body for v.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

func respondValidationError(w http.ResponseWriter, apiErr *models.APIError) {
	respondErrorWithDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
}
