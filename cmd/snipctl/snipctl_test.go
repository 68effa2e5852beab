// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// newTestDB creates a database file holding one snippet owned by alice and
// returns its path and the snippet id. The handle is closed so commands can
// open the file.
func newTestDB(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snipcheck.duckdb")
	db, err := database.New(&config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	s := &models.Snippet{OwnerID: "alice", Title: "hello",
		LanguageVersion: models.LanguageVersion{Language: "printscript", Version: "1.1"}}
	if err := db.CreateSnippet(context.Background(), s); err != nil {
		t.Fatalf("CreateSnippet() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path, s.ID
}

func TestSeedAndListRules(t *testing.T) {
	path, _ := newTestDB(t)

	out, err := executeCommand(t, "--db", path, "seed")
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if !strings.Contains(out, "Seeded 9 rules") {
		t.Errorf("seed output = %q", out)
	}

	out, err = executeCommand(t, "--db", path, "rules", "--kind", "format")
	if err != nil {
		t.Fatalf("rules error = %v", err)
	}
	for _, want := range []string{"indent_inside_if", "2|4", "space_before_colon"} {
		if !strings.Contains(out, want) {
			t.Errorf("rules output missing %q:\n%s", want, out)
		}
	}

	if _, err := executeCommand(t, "--db", path, "rules", "--kind", "compile"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestReconcileFromFile(t *testing.T) {
	path, id := newTestDB(t)
	results := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(results, []byte(`[{"message":"Identifier my_var should be camel case","line":1,"column":5}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "--db", path, "reconcile", "--snippet", id, "--file", results)
	if err != nil {
		t.Fatalf("reconcile error = %v", err)
	}
	if !strings.Contains(out, "NON_COMPLIANT (1 findings)") {
		t.Errorf("output = %q", out)
	}

	out, err = executeCommand(t, "--db", path, "reconcile", "--snippet", id, "--failed", "--reason", "worker crashed")
	if err != nil {
		t.Fatalf("reconcile --failed error = %v", err)
	}
	if !strings.Contains(out, "FAILED") {
		t.Errorf("output = %q", out)
	}
}

func TestReconcileValidation(t *testing.T) {
	path, id := newTestDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"reconcile", "--snippet", id}},
		{"failed without reason", []string{"reconcile", "--snippet", id, "--failed"}},
		{"missing snippet flag", []string{"reconcile", "--failed", "--reason", "x"}},
		{"unknown snippet", []string{"reconcile", "--snippet", "ghost", "--failed", "--reason", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(t, append([]string{"--db", path}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDeadLettersListAndDelete(t *testing.T) {
	path, id := newTestDB(t)

	db, err := database.New(&config.DatabaseConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	dl := &models.DeadLetter{ID: "dl-1", MessageID: "m-1", Subject: models.TopicLintResults,
		SnippetID: id, Payload: []byte(`{"snippetId":"` + id + `"}`), Error: "no such snippet",
		Category: "not_found", Deliveries: 1}
	if err := db.SaveDeadLetter(context.Background(), dl); err != nil {
		t.Fatalf("SaveDeadLetter() error = %v", err)
	}
	_ = db.Close()

	out, err := executeCommand(t, "--db", path, "dead-letters", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "dl-1") || !strings.Contains(out, "no such snippet") {
		t.Errorf("list output = %q", out)
	}

	out, err = executeCommand(t, "--db", path, "dlq", "list", "--json")
	if err != nil || !strings.Contains(out, `"id": "dl-1"`) {
		t.Errorf("json output = %q, err = %v", out, err)
	}

	if _, err := executeCommand(t, "--db", path, "dead-letters", "delete", "dl-1"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	out, _ = executeCommand(t, "--db", path, "dead-letters", "list")
	if !strings.Contains(out, "No dead letters") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := executeCommand(t, "token", "--user", "alice", "--role", "admin", "--secret", testSecret)
	if err != nil {
		t.Fatalf("token error = %v", err)
	}

	manager, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := manager.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "alice" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := executeCommand(t, "token", "--user", "alice", "--role", "root", "--secret", testSecret); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := executeCommand(t, "token", "--user", "alice", "--secret", "short"); err == nil {
		t.Error("expected error for short secret")
	}
}
