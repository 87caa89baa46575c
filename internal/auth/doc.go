// Tally - Privacy-First Web Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tally

// Package auth authenticates stats API requests with HS256 bearer tokens.
//
// Tokens are minted by the dashboard, which owns user login, with the
// shared api.jwt_secret. The optional "sites" claim lists the internal site
// ids the bearer may read; a token without it may read every site.
//
//	mgr, err := auth.NewJWTManager(cfg.API.JWTSecret)
//	r.Use(auth.NewMiddleware(mgr).Authenticate)
//	...
//	claims := auth.ClaimsFromContext(r.Context())
//	if !claims.CanAccess(siteID) { ... }
package auth
