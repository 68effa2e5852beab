// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/models"
)

func newRecord(snippetID string, findings []models.ResultEntry) *models.ComplianceRecord {
	return &models.ComplianceRecord{
		ID:        uuid.NewString(),
		SnippetID: snippetID,
		Type:      models.DeriveComplianceType(findings),
		LintedAt:  time.Now().UTC(),
		Errors:    findings,
	}
}

func TestUpsertCompliance_ReplacesRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestSnippet(t, db, "snip-1", "user-42")

	findings := []models.ResultEntry{{Message: "unused var", Line: 3, Column: 5}}
	if err := db.UpsertCompliance(ctx, newRecord("snip-1", findings)); err != nil {
		t.Fatalf("first UpsertCompliance() error = %v", err)
	}

	rec, err := db.FindComplianceBySnippetID(ctx, "snip-1")
	if err != nil {
		t.Fatalf("FindComplianceBySnippetID() error = %v", err)
	}
	if rec.Type != models.ComplianceNonCompliant || len(rec.Errors) != 1 || rec.Errors[0] != findings[0] {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := db.UpsertCompliance(ctx, newRecord("snip-1", nil)); err != nil {
		t.Fatalf("second UpsertCompliance() error = %v", err)
	}

	rec, err = db.FindComplianceBySnippetID(ctx, "snip-1")
	if err != nil {
		t.Fatalf("FindComplianceBySnippetID() error = %v", err)
	}
	if rec.Type != models.ComplianceCompliant || len(rec.Errors) != 0 {
		t.Errorf("record not replaced: %+v", rec)
	}

	n, err := db.CountComplianceRecords(ctx, "snip-1")
	if err != nil {
		t.Fatalf("CountComplianceRecords() error = %v", err)
	}
	if n != 1 {
		t.Errorf("record count = %d, want 1", n)
	}
}

func TestUpsertCompliance_UnknownSnippet(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpsertCompliance(context.Background(), newRecord("ghost", nil))
	if !isNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindCompliance_NeverLinted(t *testing.T) {
	db := setupTestDB(t)
	createTestSnippet(t, db, "snip-1", "user-42")

	rec, err := db.FindComplianceBySnippetID(context.Background(), "snip-1")
	if err != nil {
		t.Fatalf("FindComplianceBySnippetID() error = %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestListSnippetsWithCompliance(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestSnippet(t, db, "snip-1", "user-42")
	time.Sleep(2 * time.Millisecond)
	createTestSnippet(t, db, "snip-2", "user-42")

	bad := []models.ResultEntry{{Message: "missing semicolon", Line: 1, Column: 10}}
	if err := db.UpsertCompliance(ctx, newRecord("snip-2", bad)); err != nil {
		t.Fatalf("UpsertCompliance() error = %v", err)
	}

	list, err := db.ListSnippetsWithCompliance(ctx, "user-42")
	if err != nil {
		t.Fatalf("ListSnippetsWithCompliance() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Type != models.CompliancePending {
		t.Errorf("never-linted snippet should be PENDING, got %s", list[0].Type)
	}
	if list[1].Type != models.ComplianceNonCompliant {
		t.Errorf("snip-2 should be NON_COMPLIANT, got %s", list[1].Type)
	}

	pending, err := db.ListSnippetsWithCompliance(ctx, "user-42", models.CompliancePending)
	if err != nil {
		t.Fatalf("ListSnippetsWithCompliance(PENDING) error = %v", err)
	}
	if len(pending) != 1 || pending[0].Snippet.ID != "snip-1" {
		t.Errorf("PENDING filter = %+v, want only snip-1", pending)
	}

	failing, err := db.ListSnippetsWithCompliance(ctx, "user-42", models.ComplianceNonCompliant, models.ComplianceFailed)
	if err != nil {
		t.Fatalf("ListSnippetsWithCompliance(failing) error = %v", err)
	}
	if len(failing) != 1 || failing[0].Snippet.ID != "snip-2" {
		t.Errorf("failing filter = %+v, want only snip-2", failing)
	}
}

func TestDeleteSnippet_RemovesCompliance(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestSnippet(t, db, "snip-1", "user-42")

	if err := db.UpsertCompliance(ctx, newRecord("snip-1", nil)); err != nil {
		t.Fatalf("UpsertCompliance() error = %v", err)
	}
	if err := db.DeleteSnippet(ctx, "snip-1"); err != nil {
		t.Fatalf("DeleteSnippet() error = %v", err)
	}
	n, err := db.CountComplianceRecords(ctx, "snip-1")
	if err != nil {
		t.Fatalf("CountComplianceRecords() error = %v", err)
	}
	if n != 0 {
		t.Errorf("compliance record survived snippet deletion")
	}
}
