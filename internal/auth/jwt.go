// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned by NewJWTManager for an empty secret.
var ErrEmptySecret = errors.New("JWT secret is required")

// Claims are the JWT claims understood by the stats API.
type Claims struct {
	// Sites restricts the token to these internal site ids.
	// Empty means every site.
	Sites []string `json:"sites,omitempty"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the claims allow reading siteID.
func (c *Claims) CanAccess(siteID string) bool {
	if c == nil {
		return false
	}
	return len(c.Sites) == 0 || slices.Contains(c.Sites, siteID)
}

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret []byte
	now    func() time.Time
}

// NewJWTManager creates a manager for secret.
func NewJWTManager(secret string) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &JWTManager{secret: []byte(secret), now: time.Now}, nil
}

// GenerateToken signs a token for subject that expires after ttl.
// The server never issues tokens itself; this exists for tooling and tests.
func (m *JWTManager) GenerateToken(subject string, sites []string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		Sites: sites,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, algorithm and expiry of tokenString
// and returns its claims. Tokens signed with anything but HS256 are rejected.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
