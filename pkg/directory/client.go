// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package directory talks to the management endpoint to enumerate the
// tenants and subscriptions visible to a credential.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/logger"
	"github.com/stratocloud/stratoctl/pkg/networking"
)

// apiVersion is sent with every management request.
const apiVersion = "2026-02-01"

// requestIDHeader correlates client requests with server-side logs.
const requestIDHeader = "X-Strato-Client-Request-Id"

const (
	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
)

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 2048

// Client enumerates the directory visible to a credential.
type Client interface {
	// ListTenants returns the IDs of every tenant the credential's home
	// account can see.
	ListTenants(ctx context.Context, cred *auth.CacheEntry) ([]string, error)
	// ListSubscriptions returns the subscriptions visible in the tenant
	// the credential was issued for.
	ListSubscriptions(ctx context.Context, cred *auth.CacheEntry) ([]auth.SubscriptionRecord, error)
}

// restClient implements Client against the management REST endpoint.
type restClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a directory client for the given management endpoint.
func NewClient(managementURL string) Client {
	return NewClientWithHTTPClient(managementURL, networking.NewHTTPClient())
}

// NewClientWithHTTPClient creates a directory client with a caller-supplied
// HTTP client. Intended for tests.
func NewClientWithHTTPClient(managementURL string, httpClient *http.Client) Client {
	return &restClient{
		baseURL:    managementURL,
		httpClient: httpClient,
	}
}

// tenantPage is one page of the tenant list response.
type tenantPage struct {
	Value []struct {
		TenantID string `json:"tenantId"`
	} `json:"value"`
	NextLink string `json:"nextLink"`
}

// subscriptionPage is one page of the subscription list response.
type subscriptionPage struct {
	Value    []auth.SubscriptionRecord `json:"value"`
	NextLink string                    `json:"nextLink"`
}

func (c *restClient) ListTenants(ctx context.Context, cred *auth.CacheEntry) ([]string, error) {
	var tenantIDs []string
	pageURL := c.listURL("tenants")
	for pageURL != "" {
		body, err := c.get(ctx, pageURL, cred.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}

		var page tenantPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse tenant list: %w", err)
		}
		for _, tenant := range page.Value {
			tenantIDs = append(tenantIDs, tenant.TenantID)
		}
		pageURL = page.NextLink
	}
	return tenantIDs, nil
}

func (c *restClient) ListSubscriptions(ctx context.Context, cred *auth.CacheEntry) ([]auth.SubscriptionRecord, error) {
	var subscriptions []auth.SubscriptionRecord
	pageURL := c.listURL("subscriptions")
	for pageURL != "" {
		body, err := c.get(ctx, pageURL, cred.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}

		var page subscriptionPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse subscription list: %w", err)
		}
		subscriptions = append(subscriptions, page.Value...)
		pageURL = page.NextLink
	}
	return subscriptions, nil
}

func (c *restClient) listURL(collection string) string {
	return fmt.Sprintf("%s/%s?api-version=%s", c.baseURL, collection, url.QueryEscape(apiVersion))
}

// get fetches a single URL with retries on throttling and transient server
// errors. Other failures abort immediately.
func (c *restClient) get(ctx context.Context, requestURL, accessToken string) ([]byte, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initialDelay

	operation := func() ([]byte, error) {
		body, err := c.getOnce(ctx, requestURL, accessToken)
		if err != nil {
			var httpErr *networking.HTTPError
			if errors.As(err, &httpErr) && !httpErr.Retryable() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxRetries+1),
		backoff.WithNotify(func(err error, duration time.Duration) {
			logger.Debugf("retrying directory request after %v: %v", duration, err)
		}),
	)
}

func (c *restClient) getOnce(ctx context.Context, requestURL, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, networking.NewHTTPError(resp.StatusCode, requestURL, string(preview))
	}

	return io.ReadAll(resp.Body)
}
