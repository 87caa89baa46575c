// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package models

import (
	"errors"
	"time"
)

// ErrInvalidEvent marks a store rejection caused by the contents of an
// event rather than by the store itself. Stores wrap it around constraint
// and data errors so that callers can tell a bad row from an outage.
var ErrInvalidEvent = errors.New("invalid pageview event")

// PageviewEvent is one stored page load.
type PageviewEvent struct {
	ID             string    `json:"id"`
	SiteID         string    `json:"siteId"`
	Pathname       string    `json:"pathname"`
	Hostname       string    `json:"hostname"`
	Referrer       *string   `json:"referrer"`
	VisitorID      string    `json:"visitorId"`
	Device         string    `json:"device"`
	Browser        string    `json:"browser"`
	BrowserVersion string    `json:"browserVersion"`
	OS             string    `json:"os"`
	OSVersion      string    `json:"osVersion"`
	Country        *string   `json:"country"`
	CountryCode    *string   `json:"countryCode"`
	IPAddress      string    `json:"ipAddress"` // masked, never the raw client address
	Language       *string   `json:"language"`
	Duration       *float64  `json:"duration"` // seconds
	Timestamp      time.Time `json:"timestamp"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Site is the projection of a registry row used during ingestion.
type Site struct {
	ID          string `json:"id"`          // internal key, foreign key of pageviews
	PublicToken string `json:"publicToken"` // token embedded in the tracking snippet
	Name        string `json:"name"`
}

// TrackPayload is the validated body of POST /api/track.
//
// Required fields are plain strings so that a missing value and a value of
// the wrong JSON type both fail the required check.
type TrackPayload struct {
	SiteID       string   `json:"siteId" validate:"required"`
	Pathname     string   `json:"pathname" validate:"required"`
	Hostname     string   `json:"hostname" validate:"required"`
	UserAgent    string   `json:"userAgent" validate:"required"`
	VisitorID    string   `json:"visitorId" validate:"required"`
	Timestamp    string   `json:"timestamp" validate:"required"`
	Referrer     *string  `json:"referrer,omitempty"`
	Language     *string  `json:"language,omitempty"`
	ScreenWidth  *float64 `json:"screenWidth,omitempty"`
	ScreenHeight *float64 `json:"screenHeight,omitempty"`
	Duration     *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
}
