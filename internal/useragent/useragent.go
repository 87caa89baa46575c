// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package useragent classifies raw User-Agent strings into the device,
// browser and operating system labels stored with each pageview.
//
// Classify is a pure function: it never performs I/O, never panics and
// never returns empty labels. Anything the parser cannot recognize is
// reported as Unknown, and a browser without an explicit device marker is
// reported as Desktop.
package useragent

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// Device classes.
const (
	DeviceMobile   = "Mobile"
	DeviceTablet   = "Tablet"
	DeviceWearable = "Wearable"
	DeviceConsole  = "Console"
	DeviceSmartTV  = "Smart TV"
	DeviceDesktop  = "Desktop"
)

// Unknown is used for any browser or OS field the parser could not fill.
const Unknown = "Unknown"

// Result is the classification of one User-Agent string.
type Result struct {
	Device         string
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
}

// Device markers the underlying parser does not distinguish. Matched
// case-insensitively, first match wins.
var deviceMarkers = []struct {
	token  string
	device string
}{
	{"watch os", DeviceWearable},
	{"watchos", DeviceWearable},
	{"wear os", DeviceWearable},
	{"wearos", DeviceWearable},
	{"playstation", DeviceConsole},
	{"xbox", DeviceConsole},
	{"nintendo", DeviceConsole},
	{"smart-tv", DeviceSmartTV},
	{"smarttv", DeviceSmartTV},
	{"googletv", DeviceSmartTV},
	{"appletv", DeviceSmartTV},
	{"hbbtv", DeviceSmartTV},
	{"web0s", DeviceSmartTV},
	{"webos tv", DeviceSmartTV},
	{"bravia", DeviceSmartTV},
	{"roku", DeviceSmartTV},
	{"crkey", DeviceSmartTV},
	{"aftb", DeviceSmartTV}, // Fire TV
	{"aftm", DeviceSmartTV},
	{"aftt", DeviceSmartTV},
}

// Classify parses s. It is safe for any input, including the empty string.
func Classify(s string) Result {
	parsed := ua.Parse(s)

	return Result{
		Device:         deviceClass(s, parsed),
		Browser:        orUnknown(parsed.Name),
		BrowserVersion: orUnknown(parsed.Version),
		OS:             orUnknown(parsed.OS),
		OSVersion:      orUnknown(parsed.OSVersion),
	}
}

func deviceClass(raw string, parsed ua.UserAgent) string {
	lower := strings.ToLower(raw)
	for _, m := range deviceMarkers {
		if strings.Contains(lower, m.token) {
			return m.device
		}
	}

	switch {
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}
