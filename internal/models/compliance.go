// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import (
	"fmt"
	"time"
)

// ComplianceType is the stored compliance status of a snippet.
type ComplianceType string

const (
	ComplianceCompliant    ComplianceType = "COMPLIANT"
	ComplianceNonCompliant ComplianceType = "NON_COMPLIANT"
	ComplianceFailed       ComplianceType = "FAILED"
	CompliancePending      ComplianceType = "PENDING"
)

// ParseComplianceType converts a stored string into a ComplianceType.
func ParseComplianceType(s string) (ComplianceType, error) {
	switch t := ComplianceType(s); t {
	case ComplianceCompliant, ComplianceNonCompliant, ComplianceFailed, CompliancePending:
		return t, nil
	default:
		return "", fmt.Errorf("unknown compliance type %q", s)
	}
}

// DeriveComplianceType returns COMPLIANT for an empty result batch and
// NON_COMPLIANT otherwise.
func DeriveComplianceType(results []ResultEntry) ComplianceType {
	if len(results) == 0 {
		return ComplianceCompliant
	}
	return ComplianceNonCompliant
}

// Passes reports whether a snippet with this status is allowed through
// compliance filters. PENDING passes so that snippets which have never been
// linted are not hidden.
func (t ComplianceType) Passes() bool {
	return t == ComplianceCompliant || t == CompliancePending
}

// ComplianceRecord is the current compliance snapshot of a snippet.
// There is at most one record per snippet; each new result batch replaces it.
type ComplianceRecord struct {
	ID            string         `json:"id"`
	SnippetID     string         `json:"snippet_id"`
	Type          ComplianceType `json:"compliance_type"`
	LintedAt      time.Time      `json:"linted_at"`
	Errors        []ResultEntry  `json:"errors"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// State converts the record into its tagged form. A nil record is Pending.
func (r *ComplianceRecord) State() ComplianceState {
	if r == nil {
		return Pending{}
	}
	switch r.Type {
	case ComplianceCompliant:
		return Compliant{}
	case ComplianceNonCompliant:
		return NonCompliant{Errors: r.Errors}
	case ComplianceFailed:
		return Failed{Reason: r.FailureReason}
	default:
		return Pending{}
	}
}

// ComplianceState is the tagged compliance state of a snippet.
// The concrete types are Pending, Compliant, NonCompliant and Failed.
type ComplianceState interface {
	Type() ComplianceType
	complianceState()
}

// Pending is the state of a snippet with no result yet.
type Pending struct{}

// Compliant is the state of a snippet whose last result batch was empty.
type Compliant struct{}

// NonCompliant carries the findings of the last result batch.
type NonCompliant struct {
	Errors []ResultEntry
}

// Failed records that evaluation could not be completed.
type Failed struct {
	Reason string
}

func (Pending) Type() ComplianceType      { return CompliancePending }
func (Compliant) Type() ComplianceType    { return ComplianceCompliant }
func (NonCompliant) Type() ComplianceType { return ComplianceNonCompliant }
func (Failed) Type() ComplianceType       { return ComplianceFailed }

func (Pending) complianceState()      {}
func (Compliant) complianceState()    {}
func (NonCompliant) complianceState() {}
func (Failed) complianceState()       {}

// StateErrors returns the findings carried by a state, or an empty slice.
func StateErrors(s ComplianceState) []ResultEntry {
	if nc, ok := s.(NonCompliant); ok && nc.Errors != nil {
		return nc.Errors
	}
	return []ResultEntry{}
}
