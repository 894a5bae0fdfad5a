// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package keyring abstracts the OS keyring used to hold the token store
// encryption password.
package keyring

import (
	"errors"

	zkeyring "github.com/zalando/go-keyring"
)

// ErrNotFound indicates that the requested key was not found
var ErrNotFound = errors.New("key not found")

// Provider defines the interface for keyring backends
type Provider interface {
	// Set stores a key-value pair in the keyring
	Set(service, key, value string) error

	// Get retrieves a value from the keyring
	Get(service, key string) (string, error)

	// Delete removes a specific key from the keyring
	Delete(service, key string) error

	// IsAvailable tests if this keyring backend is functional
	IsAvailable() bool

	// Name returns a human-readable name for this backend
	Name() string
}

// NewSystemProvider returns the OS keyring backend (Keychain on macOS,
// Credential Manager on Windows, Secret Service on Linux).
func NewSystemProvider() Provider {
	return &systemProvider{}
}

type systemProvider struct{}

func (*systemProvider) Set(service, key, value string) error {
	return zkeyring.Set(service, key, value)
}

func (*systemProvider) Get(service, key string) (string, error) {
	value, err := zkeyring.Get(service, key)
	if errors.Is(err, zkeyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

func (*systemProvider) Delete(service, key string) error {
	err := zkeyring.Delete(service, key)
	if errors.Is(err, zkeyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// IsAvailable probes the backend with a throwaway key. Some platforms expose
// the keyring API but fail at call time (locked session daemons, headless
// environments), so a write/read/delete cycle is the only reliable signal.
func (p *systemProvider) IsAvailable() bool {
	testKey := GenerateUniqueTestKey()
	if err := p.Set(testService, testKey, "probe"); err != nil {
		return false
	}
	if _, err := p.Get(testService, testKey); err != nil {
		return false
	}
	_ = p.Delete(testService, testKey)
	return true
}

func (*systemProvider) Name() string {
	return "OS keyring"
}

const testService = "stratoctl-keyring-test"
