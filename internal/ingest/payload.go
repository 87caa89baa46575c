// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tally/internal/models"
)

// errMalformedBody covers bodies that are empty, too large or not a JSON
// object.
var errMalformedBody = errors.New("malformed track body")

// decodePayload reads a JSON object from r into a TrackPayload.
//
// Fields are read loosely: a required field that is not a string decodes
// as "" so that it fails validation instead of failing the parse. Optional
// fields of the wrong type are ignored. Every string is passed through
// cleanString.
func decodePayload(r io.Reader) (models.TrackPayload, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return models.TrackPayload{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if raw == nil {
		return models.TrackPayload{}, fmt.Errorf("%w: not an object", errMalformedBody)
	}

	return models.TrackPayload{
		SiteID:       stringField(raw, "siteId"),
		Pathname:     stringField(raw, "pathname"),
		Hostname:     stringField(raw, "hostname"),
		UserAgent:    stringField(raw, "userAgent"),
		VisitorID:    stringField(raw, "visitorId"),
		Timestamp:    stringField(raw, "timestamp"),
		Referrer:     optionalString(raw, "referrer"),
		Language:     optionalString(raw, "language"),
		ScreenWidth:  optionalNumber(raw, "screenWidth"),
		ScreenHeight: optionalNumber(raw, "screenHeight"),
		Duration:     optionalNumber(raw, "duration"),
	}, nil
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return cleanString(s)
}

// cleanString drops NUL bytes, replaces invalid UTF-8 with U+FFFD and trims
// surrounding whitespace. Neither NUL nor invalid UTF-8 can be stored in a
// text column.
func cleanString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.TrimSpace(s)
}

// optionalString returns nil for absent, null, empty and non-string values.
func optionalString(raw map[string]interface{}, key string) *string {
	s, ok := raw[key].(string)
	if !ok {
		return nil
	}
	if s = cleanString(s); s == "" {
		return nil
	}
	return &s
}

func optionalNumber(raw map[string]interface{}, key string) *float64 {
	f, ok := raw[key].(float64)
	if !ok {
		return nil
	}
	return &f
}

// parseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds, as produced by Date.prototype.toISOString.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
