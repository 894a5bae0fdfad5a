// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// CacheEntry is a cached token record. Provider fields this client does not
// understand are kept opaquely in Extra and round-trip through persistence
// without loss.
type CacheEntry struct {
	// Authority is the URL of the issuing authority, including the tenant
	// segment (e.g. https://login.stratocloud.io/common).
	Authority string
	// ClientID identifies the client application the token was issued to.
	ClientID string
	// UserID is the normalized (lower-case) email/UPN of the signed-in
	// identity, or the client ID for service principals.
	UserID string
	// TenantID is the directory tenant the token is scoped to.
	TenantID string
	// Resource is the API surface the token grants access to.
	Resource string
	// AccessToken is the bearer token.
	AccessToken string
	// RefreshToken may be empty for flows that do not issue one.
	RefreshToken string
	// ExpiresOn is the access token expiry.
	ExpiresOn time.Time
	// Extra holds provider fields treated opaquely.
	Extra map[string]json.RawMessage
}

// JSON keys for the known CacheEntry fields. Unknown keys land in Extra.
const (
	keyAuthority    = "authority"
	keyClientID     = "clientId"
	keyUserID       = "userId"
	keyTenantID     = "tenantId"
	keyResource     = "resource"
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyExpiresOn    = "expiresOn"
)

// MarshalJSON flattens the entry into a single JSON object with the opaque
// provider fields at the top level, matching the persisted layout.
func (e *CacheEntry) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(e.Extra)+8)
	for k, v := range e.Extra {
		doc[k] = v
	}

	set := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		doc[key] = raw
		return nil
	}

	if err := set(keyAuthority, e.Authority); err != nil {
		return nil, err
	}
	if err := set(keyClientID, e.ClientID); err != nil {
		return nil, err
	}
	if err := set(keyUserID, e.UserID); err != nil {
		return nil, err
	}
	if err := set(keyTenantID, e.TenantID); err != nil {
		return nil, err
	}
	if err := set(keyResource, e.Resource); err != nil {
		return nil, err
	}
	if err := set(keyAccessToken, e.AccessToken); err != nil {
		return nil, err
	}
	if e.RefreshToken != "" {
		if err := set(keyRefreshToken, e.RefreshToken); err != nil {
			return nil, err
		}
	}
	if err := set(keyExpiresOn, e.ExpiresOn.UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	return json.Marshal(doc)
}

// UnmarshalJSON is the inverse of MarshalJSON: known keys populate the typed
// fields, everything else is preserved verbatim in Extra.
func (e *CacheEntry) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	str := func(key string, dst *string) error {
		raw, ok := doc[key]
		if !ok {
			return nil
		}
		delete(doc, key)
		return json.Unmarshal(raw, dst)
	}

	if err := str(keyAuthority, &e.Authority); err != nil {
		return err
	}
	if err := str(keyClientID, &e.ClientID); err != nil {
		return err
	}
	if err := str(keyUserID, &e.UserID); err != nil {
		return err
	}
	if err := str(keyTenantID, &e.TenantID); err != nil {
		return err
	}
	if err := str(keyResource, &e.Resource); err != nil {
		return err
	}
	if err := str(keyAccessToken, &e.AccessToken); err != nil {
		return err
	}
	if err := str(keyRefreshToken, &e.RefreshToken); err != nil {
		return err
	}

	var expires string
	if err := str(keyExpiresOn, &expires); err != nil {
		return err
	}
	if expires != "" {
		parsed, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return err
		}
		e.ExpiresOn = parsed
	}

	if len(doc) > 0 {
		e.Extra = doc
	} else {
		e.Extra = nil
	}
	return nil
}

// EqualIgnoringExpiry reports whether two entries are structurally equal in
// every field except ExpiresOn. This is the duplicate predicate for the cache:
// a repeated login producing the same token differs only in expiry and must
// not grow the store, while a refreshed token (different AccessToken) is a
// distinct entry.
func (e *CacheEntry) EqualIgnoringExpiry(o *CacheEntry) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Authority != o.Authority ||
		e.ClientID != o.ClientID ||
		e.UserID != o.UserID ||
		e.TenantID != o.TenantID ||
		e.Resource != o.Resource ||
		e.AccessToken != o.AccessToken ||
		e.RefreshToken != o.RefreshToken {
		return false
	}
	if len(e.Extra) != len(o.Extra) {
		return false
	}
	for k, v := range e.Extra {
		ov, ok := o.Extra[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the entry.
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

// Query selects cache entries by structural superset match: every non-empty
// field must equal the corresponding entry field; entries may carry extra
// fields. ExpiresOn is never part of a query.
type Query struct {
	Authority string
	ClientID  string
	UserID    string
	TenantID  string
	Resource  string
}

// Matches reports whether the entry satisfies the query.
func (q Query) Matches(e *CacheEntry) bool {
	if q.Authority != "" && q.Authority != e.Authority {
		return false
	}
	if q.ClientID != "" && q.ClientID != e.ClientID {
		return false
	}
	if q.UserID != "" && q.UserID != e.UserID {
		return false
	}
	if q.TenantID != "" && q.TenantID != e.TenantID {
		return false
	}
	if q.Resource != "" && q.Resource != e.Resource {
		return false
	}
	return true
}

// NormalizeUserID canonicalizes a user identity for storage and comparison.
// Identities are compared case-insensitively throughout the credential core.
func NormalizeUserID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

// CommonTenant is the well-known pseudo-tenant that authenticates a user
// without pinning to one organization. A common-tenant credential cannot query
// subscriptions across directory tenant boundaries and must be resolved to
// real tenants first.
const CommonTenant = "common"

// RetargetAuthority replaces the common-tenant segment of an authority URL
// with a concrete tenant ID. Device-code flows resolve the real tenant only
// after the fact, so their cached authorities are rewritten before storage.
func RetargetAuthority(authority, tenantID string) string {
	if tenantID == "" {
		return authority
	}
	suffix := "/" + CommonTenant
	if strings.HasSuffix(authority, suffix) {
		return strings.TrimSuffix(authority, suffix) + "/" + tenantID
	}
	return strings.Replace(authority, suffix+"/", "/"+tenantID+"/", 1)
}
