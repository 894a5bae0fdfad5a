// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import "time"

// LoginKind selects the authentication strategy used for a login.
type LoginKind int

// Login kinds.
const (
	// LoginKindUser authenticates with a username and password.
	LoginKindUser LoginKind = iota
	// LoginKindServicePrincipal authenticates an application identity with a
	// client secret.
	LoginKindServicePrincipal
	// LoginKindDeviceCode authenticates interactively via the device-code
	// flow. This is the MFA-capable path.
	LoginKindDeviceCode
)

// String returns the login kind name.
func (k LoginKind) String() string {
	switch k {
	case LoginKindUser:
		return "user"
	case LoginKindServicePrincipal:
		return "servicePrincipal"
	case LoginKindDeviceCode:
		return "deviceCode"
	default:
		return "unknown"
	}
}

// TenantInfo pairs a directory tenant with the credential valid for querying
// it. Created during tenant-list construction and consumed once to fetch
// subscriptions; never persisted.
type TenantInfo struct {
	TenantID   string
	Credential *CacheEntry
}

// SubscriptionRecord describes one subscription visible to the signed-in
// identity. The record is handed off to the profile layer and not owned by
// the credential core.
type SubscriptionRecord struct {
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	TenantID       string `json:"tenantId"`
	Username       string `json:"username"`
	UserType       string `json:"userType"`
}

// UserCode is the result of starting a device-code flow. Message is shown to
// the user; the remaining fields drive the polling step.
type UserCode struct {
	Message         string
	UserCode        string
	DeviceCode      string
	VerificationURI string
	Interval        time.Duration
	ExpiresAt       time.Time
}
