// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tally/internal/models"
)

func TestAuthenticate(t *testing.T) {
	mgr, err := NewJWTManager(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	valid, err := mgr.GenerateToken("dashboard", []string{"site-1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(mgr).Authenticate(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusNoContent},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sites/site-1/stats/summary", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusUnauthorized {
				if seen == nil || seen.Subject != "dashboard" {
					t.Errorf("claims not stored in context: %+v", seen)
				}
				return
			}

			if seen != nil {
				t.Error("next handler called for unauthorized request")
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("WWW-Authenticate header missing")
			}
			var resp models.APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != CodeUnauthorized {
				t.Errorf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestClaimsFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c := ClaimsFromContext(req.Context()); c != nil {
		t.Errorf("ClaimsFromContext = %+v, want nil", c)
	}
}
