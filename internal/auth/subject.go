// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package auth

import "context"

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subject is the authenticated caller.
type Subject struct {
	ID   string
	Role string
	// Method is the auth mode that produced the subject ("jwt" or "header").
	Method string
}

// IsAdmin reports whether the subject may use admin endpoints.
func (s *Subject) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// ContextWithSubject returns ctx carrying s.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// GetSubject returns the authenticated subject, or nil.
func GetSubject(ctx context.Context) *Subject {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	if !ok {
		return nil
	}
	return s
}

// UserID returns the authenticated user id, or "".
func UserID(ctx context.Context) string {
	if s := GetSubject(ctx); s != nil {
		return s.ID
	}
	return ""
}
