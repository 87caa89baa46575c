// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package query

import (
	"strconv"
	"strings"
	"time"
)

// TimeColumn is the event time column of the pageviews table.
const TimeColumn = "occurred_at"

// WhereBuilder constructs SQL WHERE clauses with numbered placeholders.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("pathname = ?", "/pricing")
//	whereClause, args := wb.Build()
//	// pathname = $1
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// Placeholder binds arg and returns its placeholder, e.g. "$3".
// Use it for values that appear outside the WHERE clause, such as LIMIT.
func (wb *WhereBuilder) Placeholder(arg interface{}) string {
	wb.args = append(wb.args, arg)
	return "$" + strconv.Itoa(len(wb.args))
}

// AddClause adds a raw condition. Each "?" in clause is replaced by the
// next numbered placeholder and bound to the matching element of args.
//
// Parameters:
//   - clause: SQL condition fragment (e.g., "device = ?")
//   - args: Arguments to bind, one per "?"
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	var sb strings.Builder
	next := 0
	for _, r := range clause {
		if r == '?' && next < len(args) {
			sb.WriteString(wb.Placeholder(args[next]))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	wb.clauses = append(wb.clauses, sb.String())
	return wb
}

// AddSite restricts rows to one site.
func (wb *WhereBuilder) AddSite(siteID string) *WhereBuilder {
	return wb.AddClause("site_id = ?", siteID)
}

// AddTimeRange restricts rows to the half-open range [from, to).
// A zero bound is skipped.
func (wb *WhereBuilder) AddTimeRange(from, to time.Time) *WhereBuilder {
	if !from.IsZero() {
		wb.AddClause(TimeColumn+" >= ?", from.UTC())
	}
	if !to.IsZero() {
		wb.AddClause(TimeColumn+" < ?", to.UTC())
	}
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", args) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", wb.args
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
