// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package query

import (
	"errors"
	"fmt"

	"github.com/tomtom215/tally/internal/models"
)

// Errors returned for arguments that cannot be formatted into SQL.
var (
	ErrInvalidDimension = errors.New("invalid breakdown dimension")
	ErrInvalidInterval  = errors.New("invalid time series interval")
)

// DefaultLimit applies when a breakdown is requested without a limit.
const DefaultLimit = 10

func scope(f models.StatsFilter) *WhereBuilder {
	return NewWhereBuilder().AddSite(f.SiteID).AddTimeRange(f.From, f.To)
}

// Summary returns the statement for the totals of a site.
//
// Columns: pageviews, visitors, visitors with exactly one pageview,
// mean of the non-null durations (0 when there are none).
func Summary(f models.StatsFilter) (string, []interface{}) {
	where, args := scope(f).BuildWithPrefix()

	sql := fmt.Sprintf(`
		WITH scoped AS (
			SELECT visitor_id, duration FROM pageviews %s
		),
		per_visitor AS (
			SELECT visitor_id, COUNT(*) AS n FROM scoped GROUP BY visitor_id
		)
		SELECT
			(SELECT COUNT(*) FROM scoped),
			(SELECT COUNT(*) FROM per_visitor),
			(SELECT COUNT(*) FROM per_visitor WHERE n = 1),
			(SELECT COALESCE(AVG(duration), 0) FROM scoped)`, where)

	return sql, args
}

// Breakdown returns the statement grouping a site's pageviews by dim,
// busiest first. NULL and empty values are labelled "Direct" for referrers
// and "Unknown" otherwise.
func Breakdown(f models.StatsFilter, dim models.Dimension) (string, []interface{}, error) {
	if !dim.Valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
	}

	label := models.UnknownCountry
	if dim == models.DimensionReferrer {
		label = models.DirectReferrer
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	wb := scope(f)
	where, _ := wb.BuildWithPrefix()
	limitPH := wb.Placeholder(limit)
	_, args := wb.Build()

	sql := fmt.Sprintf(`
		SELECT COALESCE(NULLIF(%s, ''), '%s') AS label,
			COUNT(*) AS pageviews,
			COUNT(DISTINCT visitor_id) AS visitors
		FROM pageviews
		%s
		GROUP BY 1
		ORDER BY 2 DESC, 1 ASC
		LIMIT %s`, dim, label, where, limitPH)

	return sql, args, nil
}

// Timeseries returns the statement bucketing a site's pageviews by
// interval, oldest bucket first. Empty buckets are omitted.
func Timeseries(f models.StatsFilter, interval models.Interval) (string, []interface{}, error) {
	switch interval {
	case models.IntervalHour, models.IntervalDay:
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}

	where, args := scope(f).BuildWithPrefix()

	sql := fmt.Sprintf(`
		SELECT date_trunc('%s', %s) AS bucket,
			COUNT(*) AS pageviews,
			COUNT(DISTINCT visitor_id) AS visitors
		FROM pageviews
		%s
		GROUP BY 1
		ORDER BY 1`, interval, TimeColumn, where)

	return sql, args, nil
}

// BounceRate converts the summary counts into a ratio in [0, 1].
func BounceRate(bounced, visitors int64) float64 {
	if visitors == 0 {
		return 0
	}
	return float64(bounced) / float64(visitors)
}
