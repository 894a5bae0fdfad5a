// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access token claims the credential core reads.
//
// The token is parsed without signature verification: this client only
// reflects claims the token endpoint just asserted to it over TLS, it never
// accepts inbound tokens.
type Claims struct {
	// UserID is the normalized identity claim (upn, unique_name or email).
	UserID string
	// TenantID is the directory tenant the token was issued for.
	TenantID string
	// IdentityProvider is the idp claim, when present. Consumer identity
	// providers mark account types this client cannot use.
	IdentityProvider string
	// Expiry is the exp claim.
	Expiry time.Time
}

// ClaimsFromAccessToken extracts the claims this client cares about from a
// raw JWT access token.
func ClaimsFromAccessToken(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Claims{}, fmt.Errorf("failed to parse access token claims: %w", err)
	}

	out := Claims{
		UserID:           NormalizeUserID(firstStringClaim(claims, "upn", "unique_name", "email", "sub")),
		TenantID:         stringClaim(claims, "tid"),
		IdentityProvider: stringClaim(claims, "idp"),
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expiry = exp.Time
	}

	return out, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	if v, ok := claims[name].(string); ok {
		return v
	}
	return ""
}

func firstStringClaim(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if v := stringClaim(claims, name); v != "" {
			return v
		}
	}
	return ""
}
