// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

func TestLoginOptions(t *testing.T) {
	t.Parallel()

	t.Run("user login with password flag", func(t *testing.T) {
		t.Parallel()
		opts, err := loginOptions("a@x.com", "hunter2", false, "", "", false)
		require.NoError(t, err)
		assert.Equal(t, auth.LoginKindUser, opts.Kind)
		assert.Equal(t, "a@x.com", opts.Username)
		assert.Equal(t, "hunter2", opts.Secret)
	})

	t.Run("user login requires a username", func(t *testing.T) {
		t.Parallel()
		_, err := loginOptions("", "hunter2", false, "", "", false)
		assert.ErrorContains(t, err, "--username")
	})

	t.Run("service principal with secret and tenant", func(t *testing.T) {
		t.Parallel()
		opts, err := loginOptions("app-id", "", true, "s3cret", "t1", false)
		require.NoError(t, err)
		assert.Equal(t, auth.LoginKindServicePrincipal, opts.Kind)
		assert.Equal(t, "s3cret", opts.Secret)
		assert.Equal(t, "t1", opts.TenantHint)
	})

	t.Run("service principal requires a client ID", func(t *testing.T) {
		t.Parallel()
		_, err := loginOptions("", "", true, "s3cret", "t1", false)
		assert.ErrorContains(t, err, "client ID")
	})

	t.Run("device code needs no username or secret", func(t *testing.T) {
		t.Parallel()
		opts, err := loginOptions("", "", false, "", "", true)
		require.NoError(t, err)
		assert.Equal(t, auth.LoginKindDeviceCode, opts.Kind)
		assert.NotNil(t, opts.UserCodePrompt)
	})
}
