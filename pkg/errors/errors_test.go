package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewTokenRequestError("token endpoint rejected the request", []string{"50055"}, cause)
	assert.Equal(t, "token_request: token endpoint rejected the request: connection reset", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	noCause := NewIdentityMismatchError("b@x.com", "a@x.com")
	assert.Equal(t, `identity_mismatch: signed in as "a@x.com" but "b@x.com" was requested`, noCause.Error())
}

func TestClassificationHelpers(t *testing.T) {
	t.Parallel()

	mfa := NewTokenRequestError("blocked", []string{"50076"}, nil)
	assert.True(t, IsMFARequired(mfa))
	assert.False(t, IsUserNotInDirectory(mfa))

	// Classification must survive fmt.Errorf wrapping.
	wrapped := fmt.Errorf("authenticating tenant t1: %w", mfa)
	assert.True(t, IsMFARequired(wrapped))

	notInDir := NewTokenRequestError("no such user", []string{"50034"}, nil)
	assert.True(t, IsUserNotInDirectory(notInDir))
	assert.False(t, IsMFARequired(notInDir))

	explicitMFA := NewMFARequiredError("interactive auth needed", nil, nil)
	assert.True(t, IsMFARequired(explicitMFA))

	consumer := NewTokenRequestError("consumer account", []string{"50020"}, nil)
	assert.True(t, IsUnsupportedAccountType(consumer))
	assert.True(t, IsUnsupportedAccountType(NewUnsupportedAccountTypeError(nil)))

	assert.True(t, IsIdentityMismatch(NewIdentityMismatchError("b", "a")))
	assert.True(t, IsInteractiveLoginRequired(NewInteractiveLoginRequiredError("a@x.com")))

	assert.False(t, IsMFARequired(errors.New("plain error")))
	assert.False(t, HasAnyCode(nil, "50076"))
}

func TestIsKeyringLocked(t *testing.T) {
	t.Parallel()

	assert.True(t, IsKeyringLocked(NewKeyringLockedError(nil)))
	assert.True(t, IsKeyringLocked(errors.New("dbus: Keyring locked by session manager")))
	assert.False(t, IsKeyringLocked(errors.New("permission denied")))
	assert.False(t, IsKeyringLocked(nil))
}

func TestExtractCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		description string
		expected    []string
	}{
		{
			name:     "codes from json body",
			body:     `{"error":"invalid_grant","error_codes":[50076,50034],"error_description":"STS50076: MFA required"}`,
			expected: []string{"50076", "50034"},
		},
		{
			name:        "codes from description text",
			description: "AADSTS50034: the user account does not exist in the acme directory",
			expected:    []string{"50034"},
		},
		{
			name:        "bare numeric code",
			description: "error 50000 while validating credentials",
			expected:    []string{"50000"},
		},
		{
			name:     "duplicates collapsed",
			body:     `{"error_codes":[50076],"error_description":"STS50076: blocked"}`,
			expected: []string{"50076"},
		},
		{
			name:        "no codes",
			description: "upstream timeout",
			expected:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractCodes([]byte(tt.body), tt.description)
			require.Equal(t, tt.expected, got)
		})
	}
}
