// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package env provides an abstraction over environment variable access
// so that packages reading the environment can be tested without mutating
// the process environment.
package env

import "os"

// Reader reads environment variables.
type Reader interface {
	Getenv(key string) string
}

// OSReader reads environment variables from the process environment.
type OSReader struct{}

// Getenv returns the value of the environment variable.
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

// MapReader reads environment variables from a fixed map. Intended for tests.
type MapReader struct {
	Values map[string]string
}

// NewMapReader returns a MapReader over the given values.
func NewMapReader(values map[string]string) *MapReader {
	return &MapReader{Values: values}
}

// Getenv returns the value from the map, or the empty string.
func (m *MapReader) Getenv(key string) string {
	return m.Values[key]
}
