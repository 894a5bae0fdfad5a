// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stratocloud/stratoctl/pkg/errors"
	"github.com/stratocloud/stratoctl/pkg/logger"
)

// expiryWindow is the clock skew applied when deciding whether a cached token
// is still usable.
const expiryWindow = 5 * time.Minute

// OAuthFactory builds authentication contexts backed by the OAuth 2.0 token
// endpoint of an authority. All contexts share one HTTP client and one token
// cache.
type OAuthFactory struct {
	httpClient *http.Client
	cache      TokenCache
}

// NewOAuthFactory creates a factory for OAuth authentication contexts.
func NewOAuthFactory(httpClient *http.Client, cache TokenCache) *OAuthFactory {
	return &OAuthFactory{httpClient: httpClient, cache: cache}
}

// Context returns an authentication context scoped to the given authority URL.
func (f *OAuthFactory) Context(authority string) Context {
	return &oauthContext{
		authority:  strings.TrimRight(authority, "/"),
		httpClient: f.httpClient,
		cache:      f.cache,
	}
}

// oauthContext implements Context against one authority URL.
type oauthContext struct {
	authority  string
	httpClient *http.Client
	cache      TokenCache
}

func (c *oauthContext) config(resource, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:       c.authority + "/oauth2/v2.0/authorize",
			TokenURL:      c.authority + "/oauth2/v2.0/token",
			DeviceAuthURL: c.authority + "/oauth2/v2.0/devicecode",
		},
		Scopes: scopesForResource(resource),
	}
}

// scopesForResource maps a resource URL to the scope set requested from the
// token endpoint. offline_access is always requested so that flows which can
// issue refresh tokens do so.
func scopesForResource(resource string) []string {
	return []string{strings.TrimRight(resource, "/") + "/.default", "openid", "offline_access"}
}

// withHTTPClient routes all oauth2 traffic through the shared hardened client.
func (c *oauthContext) withHTTPClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AcquireToken serves a token from the cache, refreshing silently when the
// cached access token is expired and a refresh token is available.
func (c *oauthContext) AcquireToken(ctx context.Context, resource, userID, clientID string) (*CacheEntry, error) {
	matches, err := c.cache.Find(Query{
		Authority: c.authority,
		Resource:  resource,
		ClientID:  clientID,
		UserID:    NormalizeUserID(userID),
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.NewInteractiveLoginRequiredError(userID)
	}

	entry := matches[0]
	if time.Now().Add(expiryWindow).Before(entry.ExpiresOn) {
		return entry, nil
	}

	if entry.RefreshToken == "" {
		return nil, errors.NewInteractiveLoginRequiredError(userID)
	}

	logger.Debugw("refreshing expired cached token",
		"authority", c.authority, "user", entry.UserID, "resource", resource)

	source := c.config(resource, clientID).TokenSource(c.withHTTPClient(ctx),
		&oauth2.Token{RefreshToken: entry.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, translateTokenError(err)
	}

	fresh, err := c.entryFromToken(token, resource, clientID, entry.UserID)
	if err != nil {
		return nil, err
	}

	// A refresh replaces the superseded entry rather than accumulating a
	// near-duplicate differing only in token values.
	if err := c.cache.Remove([]*CacheEntry{entry}); err != nil {
		return nil, err
	}
	if err := c.cache.Add([]*CacheEntry{fresh}); err != nil {
		return nil, err
	}
	return fresh, nil
}

// AcquireTokenWithUsernamePassword authenticates with the resource owner
// password grant and caches the result.
func (c *oauthContext) AcquireTokenWithUsernamePassword(
	ctx context.Context, resource, username, password, clientID string,
) (*CacheEntry, error) {
	token, err := c.config(resource, clientID).PasswordCredentialsToken(c.withHTTPClient(ctx), username, password)
	if err != nil {
		return nil, translateTokenError(err)
	}

	entry, err := c.entryFromToken(token, resource, clientID, username)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Add([]*CacheEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

// AcquireTokenWithClientSecret authenticates a service principal with the
// client-credentials grant and caches the result.
func (c *oauthContext) AcquireTokenWithClientSecret(
	ctx context.Context, resource, clientID, clientSecret string,
) (*CacheEntry, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.authority + "/oauth2/v2.0/token",
		Scopes:       scopesForResource(resource),
	}
	token, err := cfg.Token(c.withHTTPClient(ctx))
	if err != nil {
		return nil, translateTokenError(err)
	}

	// Client-credential tokens carry no user claims; the service principal's
	// identity is its client ID.
	entry, err := c.entryFromToken(token, resource, clientID, clientID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Add([]*CacheEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

// AcquireUserCode starts a device-code flow.
func (c *oauthContext) AcquireUserCode(ctx context.Context, resource, clientID string) (*UserCode, error) {
	response, err := c.config(resource, clientID).DeviceAuth(c.withHTTPClient(ctx))
	if err != nil {
		return nil, translateTokenError(err)
	}

	message := fmt.Sprintf("To sign in, use a web browser to open the page %s and enter the code %s to authenticate.",
		response.VerificationURI, response.UserCode)

	interval := time.Duration(response.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &UserCode{
		Message:         message,
		UserCode:        response.UserCode,
		DeviceCode:      response.DeviceCode,
		VerificationURI: response.VerificationURI,
		Interval:        interval,
		ExpiresAt:       response.Expiry,
	}, nil
}

// AcquireTokenWithDeviceCode polls the token endpoint until the device-code
// flow completes, then caches the result.
func (c *oauthContext) AcquireTokenWithDeviceCode(
	ctx context.Context, resource, clientID string, code *UserCode,
) (*CacheEntry, error) {
	response := &oauth2.DeviceAuthResponse{
		DeviceCode:      code.DeviceCode,
		UserCode:        code.UserCode,
		VerificationURI: code.VerificationURI,
		Expiry:          code.ExpiresAt,
		Interval:        int64(code.Interval / time.Second),
	}

	token, err := c.config(resource, clientID).DeviceAccessToken(c.withHTTPClient(ctx), response)
	if err != nil {
		return nil, translateTokenError(err)
	}

	entry, err := c.entryFromToken(token, resource, clientID, "")
	if err != nil {
		return nil, err
	}
	if err := c.cache.Add([]*CacheEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

// entryFromToken builds a cache entry from a token response. fallbackUserID is
// used when the access token carries no identity claim (service principals,
// opaque tokens).
func (c *oauthContext) entryFromToken(token *oauth2.Token, resource, clientID, fallbackUserID string) (*CacheEntry, error) {
	entry := &CacheEntry{
		Authority:    c.authority,
		ClientID:     clientID,
		UserID:       NormalizeUserID(fallbackUserID),
		Resource:     resource,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresOn:    token.Expiry,
	}

	claims, err := ClaimsFromAccessToken(token.AccessToken)
	if err == nil {
		if claims.UserID != "" {
			entry.UserID = claims.UserID
		}
		if claims.TenantID != "" {
			entry.TenantID = claims.TenantID
		}
		if entry.ExpiresOn.IsZero() {
			entry.ExpiresOn = claims.Expiry
		}
		if isConsumerIdentityProvider(claims.IdentityProvider) {
			return nil, errors.NewUnsupportedAccountTypeError(nil)
		}
	} else {
		logger.Debugw("access token is not a JWT, relying on token response metadata", "error", err)
	}

	if entry.TenantID == "" {
		entry.TenantID = tenantFromAuthority(c.authority)
	}

	// Preserve provider fields we do not interpret, so they round-trip
	// through the persistent store.
	for _, key := range []string{"id_token", "scope"} {
		if v, ok := token.Extra(key).(string); ok && v != "" {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			if entry.Extra == nil {
				entry.Extra = make(map[string]json.RawMessage)
			}
			entry.Extra[key] = raw
		}
	}

	return entry, nil
}

// isConsumerIdentityProvider reports whether the idp claim names a consumer
// identity provider whose accounts cannot use non-interactive flows.
func isConsumerIdentityProvider(idp string) bool {
	return strings.Contains(strings.ToLower(idp), "live.com")
}

// tenantFromAuthority extracts the trailing tenant segment of an authority URL.
func tenantFromAuthority(authority string) string {
	idx := strings.LastIndex(authority, "/")
	if idx < 0 || idx == len(authority)-1 {
		return ""
	}
	return authority[idx+1:]
}

// translateTokenError converts an oauth2 token endpoint failure into a typed
// error carrying the provider error codes, so callers can classify it.
func translateTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !stderrors.As(err, &retrieveErr) {
		return err
	}

	message := retrieveErr.ErrorDescription
	if message == "" {
		message = strings.TrimSpace(string(retrieveErr.Body))
	}
	if message == "" {
		message = "token endpoint rejected the request"
	}

	codes := errors.ExtractCodes(retrieveErr.Body, retrieveErr.ErrorDescription)
	return errors.NewTokenRequestError(message, codes, err)
}
