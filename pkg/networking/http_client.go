// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package networking provides the shared hardened HTTP client used for all
// identity and management API traffic.
package networking

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPTimeout is the timeout for outgoing HTTP requests.
const HTTPTimeout = 30 * time.Second

// ValidatingTransport validates request URLs prior to forwarding. Credentials
// ride on every request to the identity and management endpoints, so anything
// other than HTTPS is refused outright.
type ValidatingTransport struct {
	Transport http.RoundTripper
}

// RoundTrip validates the request URL prior to forwarding.
func (t *ValidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parsedURL, err := url.Parse(req.URL.String())
	if err != nil {
		return nil, fmt.Errorf("the supplied URL %s is malformed", req.URL.String())
	}
	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("the supplied URL %s is not HTTPS scheme", req.URL.String())
	}

	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}

// NewHTTPClient returns the client used for identity and management API
// requests: shared timeout, HTTPS-only.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   HTTPTimeout,
		Transport: &ValidatingTransport{Transport: http.DefaultTransport},
	}
}

// ValidateEndpointURL checks that an endpoint configured by the user is a
// well-formed HTTPS URL.
func ValidateEndpointURL(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL %q: %w", endpoint, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("endpoint URL %q must use HTTPS", endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint URL %q has no host", endpoint)
	}
	return nil
}
