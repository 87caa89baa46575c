// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

func TestNewJWTManagerEmptySecret(t *testing.T) {
	if _, err := NewJWTManager(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("NewJWTManager(\"\") error = %v, want ErrEmptySecret", err)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	mgr, err := NewJWTManager(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	token, err := mgr.GenerateToken("dashboard", []string{"site-1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if len(claims.Sites) != 1 || claims.Sites[0] != "site-1" {
		t.Errorf("Sites = %v", claims.Sites)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	mgr, err := NewJWTManager(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewJWTManager("a-completely-different-secret")
	if err != nil {
		t.Fatal(err)
	}

	wrongKey, _ := other.GenerateToken("x", nil, time.Hour)
	expired, _ := mgr.GenerateToken("x", nil, -time.Minute)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong key", wrongKey},
		{"expired", expired},
		{"other algorithm", hs512},
		{"missing exp", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestClaimsCanAccess(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		site   string
		want   bool
	}{
		{"nil claims", nil, "site-1", false},
		{"unrestricted", &Claims{}, "site-1", true},
		{"listed", &Claims{Sites: []string{"site-1", "site-2"}}, "site-2", true},
		{"not listed", &Claims{Sites: []string{"site-1"}}, "site-3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.CanAccess(tt.site); got != tt.want {
				t.Errorf("CanAccess(%q) = %v, want %v", tt.site, got, tt.want)
			}
		})
	}
}
