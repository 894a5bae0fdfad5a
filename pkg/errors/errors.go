// Package errors defines the error taxonomy exposed by the credential core.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
const (
	// ErrMFARequired is returned when the identity provider requires
	// multi-factor authentication for the attempted flow.
	ErrMFARequired = "mfa_required"

	// ErrUnsupportedAccountType is returned when the directory reports an
	// account type this client cannot use (consumer/live accounts).
	ErrUnsupportedAccountType = "unsupported_account_type"

	// ErrIdentityMismatch is returned when the username supplied by the
	// caller does not match the identity claim in the returned token.
	ErrIdentityMismatch = "identity_mismatch"

	// ErrInteractiveLoginRequired is returned when no cached credential can
	// satisfy a request and a fresh interactive login is needed.
	ErrInteractiveLoginRequired = "interactive_login_required"

	// ErrKeyringLocked is returned when the OS keyring refused access to the
	// token store password.
	ErrKeyringLocked = "keyring_locked"

	// ErrTokenRequest is returned for failures reported by the token
	// endpoint that do not match a more specific type.
	ErrTokenRequest = "token_request"

	// ErrStorage is returned for token store I/O failures.
	ErrStorage = "storage"
)

// Error represents an error in the credential core.
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Codes holds the provider error codes extracted from the identity
	// provider's response, if any.
	Codes []string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewMFARequiredError creates an error signalling that the provider demands
// multi-factor authentication. Callers can detect it with IsMFARequired and
// retry the login with the device-code flow.
func NewMFARequiredError(message string, codes []string, cause error) *Error {
	return &Error{
		Type:    ErrMFARequired,
		Message: message,
		Codes:   codes,
		Cause:   cause,
	}
}

// NewUnsupportedAccountTypeError creates an error with an actionable message
// for consumer accounts, which cannot authenticate non-interactively.
func NewUnsupportedAccountTypeError(cause error) *Error {
	return NewError(ErrUnsupportedAccountType,
		"this account type cannot sign in with a username and password. "+
			"Use an organizational account, or create a service principal and "+
			"log in with --service-principal", cause)
}

// NewIdentityMismatchError creates an error for a username that does not match
// the identity claim in the acquired token.
func NewIdentityMismatchError(supplied, actual string) *Error {
	return NewError(ErrIdentityMismatch,
		fmt.Sprintf("signed in as %q but %q was requested", actual, supplied), nil)
}

// NewInteractiveLoginRequiredError creates an error indicating that no cached
// credential could satisfy the request.
func NewInteractiveLoginRequiredError(userID string) *Error {
	return NewError(ErrInteractiveLoginRequired,
		fmt.Sprintf("no valid cached token for %q, please log in again", userID), nil)
}

// NewKeyringLockedError creates an error with remediation guidance for a
// locked or unavailable OS keyring.
func NewKeyringLockedError(cause error) *Error {
	return NewError(ErrKeyringLocked,
		"the OS keyring is locked or unavailable. Unlock your keyring (or log "+
			"in to your desktop session) and retry, or switch the token store to "+
			"the file provider", cause)
}

// NewTokenRequestError creates an error for a token endpoint failure,
// preserving the provider error codes for classification.
func NewTokenRequestError(message string, codes []string, cause error) *Error {
	return &Error{
		Type:    ErrTokenRequest,
		Message: message,
		Codes:   codes,
		Cause:   cause,
	}
}

// NewStorageError creates a new storage error
func NewStorageError(message string, cause error) *Error {
	return NewError(ErrStorage, message, cause)
}

// HasAnyCode reports whether err carries at least one of the given provider
// error codes.
func HasAnyCode(err error, codes ...string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, have := range e.Codes {
		for _, want := range codes {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsMFARequired checks if the error signals that multi-factor authentication
// is required, either by type or by provider error code.
func IsMFARequired(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Type == ErrMFARequired {
		return true
	}
	return HasAnyCode(err, mfaRequiredCodes...)
}

// IsUserNotInDirectory checks if the error reports that the user does not
// exist in the tenant's directory.
func IsUserNotInDirectory(err error) bool {
	return HasAnyCode(err, userNotInDirectoryCodes...)
}

// IsUnsupportedAccountType checks if the error is an unsupported account type
// error, either by type or by provider error code.
func IsUnsupportedAccountType(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == ErrUnsupportedAccountType || HasAnyCode(err, unsupportedAccountCodes...)
}

// IsIdentityMismatch checks if the error is an identity mismatch error
func IsIdentityMismatch(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrIdentityMismatch
}

// IsInteractiveLoginRequired checks if the error is an interactive login required error
func IsInteractiveLoginRequired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrInteractiveLoginRequired
}

// IsKeyringLocked checks if the error is a keyring locked error
func IsKeyringLocked(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Type == ErrKeyringLocked {
		return true
	}
	// Recognize the raw keyring error signature as well, so that storage
	// errors surfaced unchanged by the cache still produce guidance.
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "keyring locked")
}
