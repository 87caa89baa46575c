// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package clientip determines, anonymizes and coarsely locates the address
// of a tracking request.
//
// The raw client address is only ever used for rate limiting and the
// private-range check. What gets stored and logged is the output of Mask.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
)

// Loopback is returned by Extract when no address can be determined.
const Loopback = "127.0.0.1"

// Unspecified is the masked form of an empty address.
const Unspecified = "0.0.0.0"

// Headers consulted by Extract, in priority order.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-IP"
	HeaderCFConnectingIP = "CF-Connecting-IP"
)

// Extract returns the caller address for a request.
//
// Only the first hop of X-Forwarded-For is trusted. Header values written
// as host:port or [v6]:port lose the port. remoteAddr is the connection
// address (host:port or a bare host) and is used when none of the proxy
// headers carry a value.
func Extract(h http.Header, remoteAddr string) string {
	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = stripPort(first); first != "" {
			return first
		}
	}
	if ip := stripPort(h.Get(HeaderRealIP)); ip != "" {
		return ip
	}
	if ip := stripPort(h.Get(HeaderCFConnectingIP)); ip != "" {
		return ip
	}

	if ip := stripPort(remoteAddr); ip != "" {
		return ip
	}
	return Loopback
}

// stripPort trims s and removes a port or the brackets around an IPv6
// literal. A bare IPv6 address is returned as is.
func stripPort(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s[1 : len(s)-1]
	}
	return s
}

// FromRequest is Extract applied to r.
func FromRequest(r *http.Request) string {
	return Extract(r.Header, r.RemoteAddr)
}

// Mask anonymizes ip for storage.
//
// IPv4 addresses lose their last octet. IPv6 addresses keep their first
// four groups (the /64 network) and the remaining groups are zeroed; an
// address written with fewer than four groups is returned unchanged.
// Input that is not an IP address is returned unchanged, except the empty
// string which masks to 0.0.0.0. Mask is idempotent.
func Mask(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Unspecified
	}

	isColon := strings.Contains(ip, ":")
	if isColon && strings.Count(ip, ":")+1 < 4 {
		return ip
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}

	if addr.Is4() || addr.Is4In6() {
		b := addr.Unmap().As4()
		b[3] = 0
		return netip.AddrFrom4(b).String()
	}

	b := addr.As16()
	var sb strings.Builder
	for i := 0; i < 4; i++ {
		group := uint64(b[2*i])<<8 | uint64(b[2*i+1])
		sb.WriteString(strconv.FormatUint(group, 16))
		sb.WriteByte(':')
	}
	sb.WriteString("0:0:0:0")
	return sb.String()
}

// Location is the result of Geolocate. Both fields are nil when unknown.
type Location struct {
	Country     *string
	CountryCode *string
}

// Sentinel location reported for private and loopback addresses.
const (
	LocalCountry     = "Local"
	LocalCountryCode = "LO"
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsPrivate reports whether ip is in a private, loopback or link-local
// range. Unparseable input is not private.
func IsPrivate(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.WithZone("").Unmap()
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Geolocate returns the sentinel Local location for private addresses and
// an unknown location for everything else. There is no geolocation
// database behind it.
func Geolocate(ip string) Location {
	if !IsPrivate(ip) {
		return Location{}
	}
	country, code := LocalCountry, LocalCountryCode
	return Location{Country: &country, CountryCode: &code}
}
