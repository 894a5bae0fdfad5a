// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package tokenstore

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/adrg/xdg"
	"golang.org/x/term"

	stratoerrors "github.com/stratocloud/stratoctl/pkg/errors"
	"github.com/stratocloud/stratoctl/pkg/logger"
	"github.com/stratocloud/stratoctl/pkg/process"
	"github.com/stratocloud/stratoctl/pkg/tokenstore/keyring"
)

const (
	// PasswordEnvVar is the environment variable used to supply the token
	// store password non-interactively.
	PasswordEnvVar = "STRATOCTL_TOKEN_STORE_PASSWORD"

	// ProviderEnvVar is the environment variable used to override the token
	// store provider type.
	ProviderEnvVar = "STRATOCTL_TOKEN_STORE"

	keyringService = "stratoctl"
)

var (
	keyringProvider keyring.Provider
	keyringOnce     sync.Once
)

func getKeyringProvider() keyring.Provider {
	keyringOnce.Do(func() {
		keyringProvider = keyring.NewSystemProvider()
	})
	return keyringProvider
}

// ProviderType represents an enum of the types of available token stores.
type ProviderType string

const (
	// FileType stores tokens in a plaintext JSON file.
	FileType ProviderType = "file"

	// EncryptedType stores tokens in an AES-256-GCM sealed file keyed from
	// the OS keyring.
	EncryptedType ProviderType = "encrypted"
)

// ErrUnknownProviderType is returned when an invalid value for ProviderType is specified.
var ErrUnknownProviderType = errors.New("unknown token store provider type")

// ParseProviderType validates a provider name from config or flags.
func ParseProviderType(name string) (ProviderType, error) {
	switch name {
	case string(FileType):
		return FileType, nil
	case string(EncryptedType):
		return EncryptedType, nil
	default:
		return "", fmt.Errorf("%w: %s (valid types: %s, %s)",
			ErrUnknownProviderType, name, FileType, EncryptedType)
	}
}

// IsKeyringAvailable tests if the OS keyring backend is available.
func IsKeyringAvailable() bool {
	return getKeyringProvider().IsAvailable()
}

// Create builds the specified type of token store at its default XDG path.
func Create(providerType ProviderType) (Store, error) {
	switch providerType {
	case FileType:
		path, err := xdg.DataFile("stratoctl/tokens.json")
		if err != nil {
			return nil, fmt.Errorf("unable to access token store path: %w", err)
		}
		return NewFileStore(path)

	case EncryptedType:
		if !IsKeyringAvailable() {
			return nil, stratoerrors.NewKeyringLockedError(nil)
		}

		password, isNew, err := storePassword()
		if err != nil {
			return nil, err
		}

		path, err := xdg.DataFile("stratoctl/tokens_encrypted")
		if err != nil {
			return nil, fmt.Errorf("unable to access token store path: %w", err)
		}

		// AES-GCM wants a 256-bit key.
		key := sha256.Sum256(password)
		store, err := NewEncryptedStore(path, key[:])
		if err != nil {
			// Decryption failed: don't persist the password, so the user
			// can retry with the correct one.
			return nil, err
		}

		// Only store the password in the keyring after it successfully
		// decrypted the existing file.
		if isNew {
			if err := persistPassword(password); err != nil {
				return nil, err
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderType, providerType)
	}
}

// storePassword returns the token store password and whether it is new (not
// yet persisted in the keyring). When isNew is true the caller must persist
// it after successfully opening the store.
func storePassword() ([]byte, bool, error) {
	if fromEnv := os.Getenv(PasswordEnvVar); fromEnv != "" {
		return []byte(fromEnv), false, nil
	}

	provider := getKeyringProvider()

	secret, err := provider.Get(keyringService, keyringService)
	if err == nil {
		return []byte(secret), false, nil
	}

	if errors.Is(err, keyring.ErrNotFound) {
		if process.IsDetached() {
			return nil, false, errors.New("detached process detected, cannot prompt for token store password")
		}
		password, err := readPasswordStdin()
		if err != nil {
			return nil, false, err
		}
		return password, true, nil
	}

	// Any other keyring error means the keyring refused us.
	return nil, false, stratoerrors.NewKeyringLockedError(err)
}

func persistPassword(password []byte) error {
	provider := getKeyringProvider()
	logger.Debugf("writing token store password to %s", provider.Name())
	if err := provider.Set(keyringService, keyringService, string(password)); err != nil {
		return stratoerrors.NewKeyringLockedError(err)
	}
	return nil
}

// ResetKeyringPassword clears the token store password from the keyring (if present).
func ResetKeyringPassword() error {
	err := getKeyringProvider().Delete(keyringService, keyringService)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func readPasswordStdin() ([]byte, error) {
	fmt.Print("stratoctl protects cached credentials with a password stored in your OS keyring.\n" +
		"Please enter the token store password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	// Start a new line after receiving the password so later output lines up.
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return password, nil
}
