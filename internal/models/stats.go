// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package models

import "time"

// StatsFilter selects the pageviews of one site within [From, To).
type StatsFilter struct {
	SiteID string
	From   time.Time
	To     time.Time
	Limit  int
}

// Dimension names a breakdown column of the pageviews table.
type Dimension string

const (
	DimensionPathname Dimension = "pathname"
	DimensionReferrer Dimension = "referrer"
	DimensionDevice   Dimension = "device"
	DimensionBrowser  Dimension = "browser"
	DimensionOS       Dimension = "os"
	DimensionCountry  Dimension = "country_code"
)

// Valid reports whether d is one of the known breakdown columns.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionPathname, DimensionReferrer, DimensionDevice,
		DimensionBrowser, DimensionOS, DimensionCountry:
		return true
	}
	return false
}

// Interval is the bucket width of a time series.
type Interval string

const (
	IntervalHour Interval = "hour"
	IntervalDay  Interval = "day"
)

// SummaryStats aggregates a site over a time range.
//
// BounceRate is the share of visitors with exactly one pageview in range.
type SummaryStats struct {
	Pageviews   int64   `json:"pageviews"`
	Visitors    int64   `json:"visitors"`
	BounceRate  float64 `json:"bounceRate"`
	AvgDuration float64 `json:"avgDuration"`
}

// BreakdownRow is one group of a dimension breakdown.
type BreakdownRow struct {
	Value     string `json:"value"`
	Pageviews int64  `json:"pageviews"`
	Visitors  int64  `json:"visitors"`
}

// TimeBucket is one point of a pageview time series.
type TimeBucket struct {
	Start     time.Time `json:"start"`
	Pageviews int64     `json:"pageviews"`
	Visitors  int64     `json:"visitors"`
}

// DirectReferrer labels pageviews without a referrer in breakdowns.
const DirectReferrer = "Direct"

// UnknownCountry labels pageviews without a country code in breakdowns.
const UnknownCountry = "Unknown"
