// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package account resolves the subscriptions visible to an identity across
// every tenant it belongs to.
package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/directory"
	"github.com/stratocloud/stratoctl/pkg/errors"
	"github.com/stratocloud/stratoctl/pkg/logger"
)

// UserType values recorded on resolved subscriptions.
const (
	UserTypeUser             = "user"
	UserTypeServicePrincipal = "servicePrincipal"
)

// credentialCache is the cache surface the resolver needs: lookups for
// logout and the device-flow identity override.
// Implemented by tokencache.Cache.
type credentialCache interface {
	Find(query auth.Query) ([]*auth.CacheEntry, error)
	Remove(entries []*auth.CacheEntry) error
	SetDeviceFlowUserID(userID string)
	ClearDeviceFlowUserID()
}

// LoadOptions describes one login attempt.
type LoadOptions struct {
	// Username is the account to sign in. Required for user logins; for
	// device-code logins it is optional and used only to pre-label cached
	// entries and cross-check the resulting identity.
	Username string
	// Secret is the password (user logins) or client secret (service
	// principals).
	Secret string
	// TenantHint scopes the login to a single tenant. Empty means the home
	// directory, with tenant discovery for user logins.
	TenantHint string
	// Kind selects the authentication strategy.
	Kind auth.LoginKind
	// UserCodePrompt receives the device-code instruction message. Required
	// for device-code logins.
	UserCodePrompt func(message string)
}

// LoadResult is the outcome of a login: every subscription the identity can
// see, plus the tenants that were considered, in discovery order.
type LoadResult struct {
	Subscriptions []auth.SubscriptionRecord
	TenantIDs     []string
}

// Resolver signs an identity in and aggregates its subscriptions across
// tenants.
type Resolver struct {
	factory       auth.ContextFactory
	directory     directory.Client
	cache         credentialCache
	authorityURL  string
	managementURL string
	clientID      string
}

// NewResolver creates a subscription resolver for one cloud environment.
func NewResolver(
	factory auth.ContextFactory,
	directoryClient directory.Client,
	cache credentialCache,
	authorityURL, managementURL, clientID string,
) *Resolver {
	return &Resolver{
		factory:       factory,
		directory:     directoryClient,
		cache:         cache,
		authorityURL:  strings.TrimSuffix(authorityURL, "/"),
		managementURL: managementURL,
		clientID:      clientID,
	}
}

// Load authenticates per the options and returns every subscription the
// identity can reach. Tenants are processed strictly one at a time so the
// identity provider is never hammered in parallel and the output order is
// deterministic.
func (r *Resolver) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	var (
		tenants []auth.TenantInfo
		err     error
	)

	switch opts.Kind {
	case auth.LoginKindServicePrincipal:
		tenants, err = r.loadServicePrincipal(ctx, opts)
	case auth.LoginKindDeviceCode:
		tenants, err = r.loadDeviceCode(ctx, opts)
	case auth.LoginKindUser:
		tenants, err = r.loadUser(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown login kind %v", opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	return r.aggregateSubscriptions(ctx, opts.Kind, tenants)
}

// loadServicePrincipal authenticates an application identity. Service
// principals live in exactly one tenant, so the tenant must be supplied and
// no discovery happens.
func (r *Resolver) loadServicePrincipal(ctx context.Context, opts LoadOptions) ([]auth.TenantInfo, error) {
	if opts.TenantHint == "" {
		return nil, fmt.Errorf("a tenant is required to sign in a service principal")
	}

	authContext := r.factory.Context(r.authorityFor(opts.TenantHint))
	cred, err := authContext.AcquireTokenWithClientSecret(ctx, r.managementURL, opts.Username, opts.Secret)
	if err != nil {
		return nil, err
	}

	return []auth.TenantInfo{{TenantID: opts.TenantHint, Credential: cred}}, nil
}

// loadDeviceCode runs the interactive device-code flow. This is the path for
// accounts that require MFA.
func (r *Resolver) loadDeviceCode(ctx context.Context, opts LoadOptions) ([]auth.TenantInfo, error) {
	if opts.UserCodePrompt == nil {
		return nil, fmt.Errorf("device-code login requires a user code prompt")
	}

	// Device-code tokens come back before the cache knows who signed in;
	// the override labels the entries written during this flow.
	if opts.Username != "" {
		r.cache.SetDeviceFlowUserID(opts.Username)
		defer r.cache.ClearDeviceFlowUserID()
	}

	authContext := r.factory.Context(r.authorityFor(opts.TenantHint))
	userCode, err := authContext.AcquireUserCode(ctx, r.managementURL, r.clientID)
	if err != nil {
		return nil, err
	}
	opts.UserCodePrompt(userCode.Message)

	cred, err := authContext.AcquireTokenWithDeviceCode(ctx, r.managementURL, r.clientID, userCode)
	if err != nil {
		return nil, err
	}
	if err := checkIdentity(opts.Username, cred.UserID); err != nil {
		return nil, err
	}

	tenantID := cred.TenantID
	if tenantID == "" {
		tenantID = opts.TenantHint
	}
	return []auth.TenantInfo{{TenantID: tenantID, Credential: cred}}, nil
}

// loadUser authenticates with a username and password. Without a tenant hint
// it signs into the home directory, discovers every tenant the account
// belongs to, and re-authenticates against each one.
func (r *Resolver) loadUser(ctx context.Context, opts LoadOptions) ([]auth.TenantInfo, error) {
	authContext := r.factory.Context(r.authorityFor(opts.TenantHint))
	homeCred, err := authContext.AcquireTokenWithUsernamePassword(
		ctx, r.managementURL, opts.Username, opts.Secret, r.clientID)
	if err != nil {
		return nil, err
	}
	if err := checkIdentity(opts.Username, homeCred.UserID); err != nil {
		return nil, err
	}

	if opts.TenantHint != "" {
		return []auth.TenantInfo{{TenantID: opts.TenantHint, Credential: homeCred}}, nil
	}

	tenantIDs, err := r.directory.ListTenants(ctx, homeCred)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tenants: %w", err)
	}

	var tenants []auth.TenantInfo
	for _, tenantID := range tenantIDs {
		tenantContext := r.factory.Context(r.authorityFor(tenantID))
		cred, err := tenantContext.AcquireTokenWithUsernamePassword(
			ctx, r.managementURL, opts.Username, opts.Secret, r.clientID)
		if err != nil {
			// Guest memberships and MFA-only tenants are expected for
			// multi-tenant accounts; skip them rather than failing the
			// whole login.
			if errors.IsUserNotInDirectory(err) {
				logger.Warnf("skipping tenant %s: %s is not present in its directory", tenantID, opts.Username)
				continue
			}
			if errors.IsMFARequired(err) {
				logger.Warnf("skipping tenant %s: it requires multi-factor authentication; "+
					"use a device-code login to access it", tenantID)
				continue
			}
			return nil, fmt.Errorf("failed to authenticate to tenant %s: %w", tenantID, err)
		}
		tenants = append(tenants, auth.TenantInfo{TenantID: tenantID, Credential: cred})
	}
	return tenants, nil
}

// aggregateSubscriptions fetches the subscription list of every tenant in
// order. Unlike tenant enumeration, any failure here is fatal: a tenant that
// authenticated but cannot be queried is an error worth surfacing.
func (r *Resolver) aggregateSubscriptions(
	ctx context.Context,
	kind auth.LoginKind,
	tenants []auth.TenantInfo,
) (*LoadResult, error) {
	userType := UserTypeUser
	if kind == auth.LoginKindServicePrincipal {
		userType = UserTypeServicePrincipal
	}

	result := &LoadResult{}
	for _, tenant := range tenants {
		result.TenantIDs = append(result.TenantIDs, tenant.TenantID)

		subscriptions, err := r.directory.ListSubscriptions(ctx, tenant.Credential)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions in tenant %s: %w", tenant.TenantID, err)
		}
		for _, subscription := range subscriptions {
			if subscription.TenantID == "" {
				subscription.TenantID = tenant.TenantID
			}
			subscription.Username = tenant.Credential.UserID
			subscription.UserType = userType
			result.Subscriptions = append(result.Subscriptions, subscription)
		}
	}
	return result, nil
}

// Logout removes every cached credential belonging to the given user,
// regardless of tenant or resource. It returns the number of entries removed.
func (r *Resolver) Logout(username string) (int, error) {
	entries, err := r.cache.Find(auth.Query{UserID: username})
	if err != nil {
		return 0, fmt.Errorf("failed to look up cached credentials: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := r.cache.Remove(entries); err != nil {
		return 0, fmt.Errorf("failed to remove cached credentials: %w", err)
	}
	return len(entries), nil
}

// authorityFor returns the authority URL for a tenant, falling back to the
// common endpoint when no tenant is known yet.
func (r *Resolver) authorityFor(tenantID string) string {
	if tenantID == "" {
		tenantID = auth.CommonTenant
	}
	return r.authorityURL + "/" + tenantID
}

// checkIdentity verifies that the identity the token came back with is the
// one the user asked to sign in. The comparison is case-insensitive; user
// IDs are not case-sensitive identifiers.
func checkIdentity(supplied, actual string) error {
	if supplied == "" || actual == "" {
		return nil
	}
	if !strings.EqualFold(supplied, actual) {
		return errors.NewIdentityMismatchError(supplied, actual)
	}
	return nil
}
