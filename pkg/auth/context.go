// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth defines the credential data model and the authentication
// context used to acquire tokens from the identity provider.
package auth

import "context"

// TokenCache is the cache surface the authentication context needs. Acquired
// tokens are written to the cache as a side effect of each acquisition, and
// the cache is consulted before going to the network.
// Implemented by tokencache.Cache.
type TokenCache interface {
	Find(query Query) ([]*CacheEntry, error)
	Add(entries []*CacheEntry) error
	Remove(entries []*CacheEntry) error
}

// Context performs the network handshake against one authority URL. All
// methods return a fully populated cache entry on success; failures carry
// provider error codes where the token endpoint supplied them (see
// pkg/errors).
type Context interface {
	// AcquireToken returns a token for the given resource and user from the
	// cache, silently refreshing it when expired. It never performs an
	// interactive flow; with no usable cached credential it fails with an
	// interactive-login-required error.
	AcquireToken(ctx context.Context, resource, userID, clientID string) (*CacheEntry, error)

	// AcquireTokenWithUsernamePassword authenticates with the resource
	// owner password grant.
	AcquireTokenWithUsernamePassword(ctx context.Context, resource, username, password, clientID string) (*CacheEntry, error)

	// AcquireTokenWithClientSecret authenticates a service principal with
	// the client-credentials grant.
	AcquireTokenWithClientSecret(ctx context.Context, resource, clientID, clientSecret string) (*CacheEntry, error)

	// AcquireUserCode starts a device-code flow and returns the code the
	// user must enter out-of-band.
	AcquireUserCode(ctx context.Context, resource, clientID string) (*UserCode, error)

	// AcquireTokenWithDeviceCode polls the token endpoint until the user
	// completes the device-code flow started by AcquireUserCode.
	AcquireTokenWithDeviceCode(ctx context.Context, resource, clientID string, code *UserCode) (*CacheEntry, error)
}

// ContextFactory builds authentication contexts scoped to an authority URL.
// The subscription resolver creates one context per tenant it authenticates
// against.
type ContextFactory interface {
	Context(authority string) Context
}
