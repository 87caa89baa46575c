// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package query

import (
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_NumbersPlaceholders(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	wb := NewWhereBuilder().
		AddSite("site-1").
		AddTimeRange(from, to).
		AddClause("device = ? AND browser = ?", "Mobile", "Safari")

	whereClause, args := wb.Build()
	expected := "site_id = $1 AND occurred_at >= $2 AND occurred_at < $3 AND device = $4 AND browser = $5"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 5 {
		t.Fatalf("Expected 5 args, got %d", len(args))
	}
	if args[0] != "site-1" || args[3] != "Mobile" || args[4] != "Safari" {
		t.Errorf("unexpected args %v", args)
	}
	if wb.Count() != 4 {
		t.Errorf("Expected count 4, got %d", wb.Count())
	}
}

func TestWhereBuilder_TimeRangeSkipsZeroBounds(t *testing.T) {
	wb := NewWhereBuilder().AddTimeRange(time.Time{}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	whereClause, args := wb.Build()
	if whereClause != "occurred_at < $1" {
		t.Errorf("got %q", whereClause)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(args))
	}
}

func TestWhereBuilder_TimeRangeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	from := time.Date(2026, 3, 1, 2, 0, 0, 0, loc)

	_, args := NewWhereBuilder().AddTimeRange(from, time.Time{}).Build()

	got, ok := args[0].(time.Time)
	if !ok {
		t.Fatalf("arg type %T", args[0])
	}
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Errorf("got %v, want midnight UTC", got)
	}
}

func TestWhereBuilder_Placeholder(t *testing.T) {
	wb := NewWhereBuilder().AddSite("s")
	if ph := wb.Placeholder(25); ph != "$2" {
		t.Errorf("Placeholder = %q, want $2", ph)
	}
	_, args := wb.Build()
	if len(args) != 2 || args[1] != 25 {
		t.Errorf("args = %v", args)
	}
}

func TestWhereBuilder_BuildWithPrefix(t *testing.T) {
	whereClause, _ := NewWhereBuilder().AddSite("s").BuildWithPrefix()
	if whereClause != "WHERE site_id = $1" {
		t.Errorf("got %q", whereClause)
	}
}
