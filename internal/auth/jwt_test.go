// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/snipcheck/internal/config"
)

const testSecret = "test-secret-with-at-least-32-characters!"

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{JWTSecret: "short"}); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestJWTManager(t)

	token, err := m.GenerateToken("user-42", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-42" || claims.Role != RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestJWTManager(t)

	expired, _ := m.GenerateToken("user-42", RoleUser, -time.Minute)

	other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40)})
	foreign, _ := other.GenerateToken("user-42", RoleUser, time.Hour)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  foreign,
		"no subject": noSubject,
		"alg none":   unsigned,
		"garbage":    "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateToken(token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGenerateToken_RequiresUser(t *testing.T) {
	if _, err := newTestJWTManager(t).GenerateToken("", RoleUser, time.Hour); err == nil {
		t.Error("expected error for empty user id")
	}
}
