// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUniqueTestKey(t *testing.T) {
	t.Parallel()

	first := GenerateUniqueTestKey()
	second := GenerateUniqueTestKey()

	assert.True(t, strings.HasPrefix(first, "stratoctl-keyring-test-"))
	assert.NotEqual(t, first, second)
}
