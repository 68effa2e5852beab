// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// Header names used in header mode.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Middleware authenticates requests.
type Middleware struct {
	mode       string
	jwtManager *JWTManager
}

// NewMiddleware builds the middleware for cfg.AuthMode.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	m := &Middleware{mode: cfg.AuthMode}
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		jm, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.jwtManager = jm
	case config.AuthModeHeader:
		logging.Warn().Msg("Header authentication enabled, X-User-ID is trusted as-is")
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
	return m, nil
}

// Authenticate rejects unauthenticated requests with 401 and stores the
// Subject in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticate(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Unauthorized: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// RequireAdmin rejects non-admin subjects with 403. Apply after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := GetSubject(r.Context())
		if subject == nil {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
			return
		}
		if !subject.IsAdmin() {
			logging.Ctx(r.Context()).Warn().
				Str("user_id", subject.ID).
				Str("path", r.URL.Path).
				Msg("Access denied: admin role required")
			writeError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Subject, error) {
	if m.mode == config.AuthModeHeader {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			return nil, errors.New("missing " + HeaderUserID + " header")
		}
		role := r.Header.Get(HeaderUserRole)
		if role == "" {
			role = RoleUser
		}
		return &Subject{ID: id, Role: role, Method: config.AuthModeHeader}, nil
	}

	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errors.New("invalid token")
	}
	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return &Subject{ID: claims.Subject, Role: role, Method: config.AuthModeJWT}, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}
