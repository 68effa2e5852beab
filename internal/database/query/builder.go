// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package query builds parameterized WHERE clauses for the database package.
package query

import (
	"strings"
)

// WhereBuilder collects AND-joined conditions and their arguments.
//
//	wb := query.NewWhereBuilder().
//		AddClause("s.owner_id = ?", ownerID).
//		AddIn("c.compliance_type", "COMPLIANT", "PENDING")
//	where, args := wb.BuildWithPrefix()
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw condition with its placeholder arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddIn adds "column IN (?, ...)". An empty value list is skipped.
func (wb *WhereBuilder) AddIn(column string, values ...string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
	return wb
}

// Build joins the clauses with AND. An empty builder yields "1=1".
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix is Build with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	where, args := wb.Build()
	return "WHERE " + where, args
}

func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
