package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

// EncryptedStore persists entries as an AES-256-GCM sealed JSON document. The
// key is derived from a password held in the OS keyring (see the factory).
type EncryptedStore struct {
	filePath string
	lock     *flock.Flock
	cipher   cipher.AEAD
}

// NewEncryptedStore creates an encrypted store at the given path. key must be
// 32 bytes. Opening validates the key against any existing file so a wrong
// password fails up front rather than on first use.
func NewEncryptedStore(filePath string, key []byte) (*EncryptedStore, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	filePath = filepath.Clean(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}

	store := &EncryptedStore{
		filePath: filePath,
		lock:     flock.New(filePath + ".lock"),
		cipher:   aead,
	}

	if _, err := store.LoadEntries(); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadEntries returns all persisted entries. A missing file is an empty
// store, not an error.
func (s *EncryptedStore) LoadEntries() ([]*auth.CacheEntry, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock token store: %w", err)
	}
	defer s.lock.Unlock()

	sealed, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	if len(sealed) == 0 {
		return nil, nil
	}

	nonceSize := s.cipher.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("token store is corrupt: shorter than nonce")
	}

	plaintext, err := s.cipher.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token store (wrong password?): %w", err)
	}

	var doc document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode token store: %w", err)
	}
	return doc.Entries, nil
}

// AddEntries persists newEntries alongside the existing snapshot.
func (s *EncryptedStore) AddEntries(newEntries, existing []*auth.CacheEntry) error {
	combined := make([]*auth.CacheEntry, 0, len(existing)+len(newEntries))
	combined = append(combined, existing...)
	combined = append(combined, newEntries...)
	return s.write(combined)
}

// RemoveEntries persists keep and discards remove.
func (s *EncryptedStore) RemoveEntries(_, keep []*auth.CacheEntry) error {
	return s.write(keep)
}

// Clear removes all persisted entries.
func (s *EncryptedStore) Clear() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock token store: %w", err)
	}
	defer s.lock.Unlock()

	err := os.Remove(s.filePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear token store: %w", err)
	}
	return nil
}

// IsSecure reports that the sealed file plus keyring-held password offer
// OS-level protection.
func (*EncryptedStore) IsSecure() bool {
	return true
}

func (s *EncryptedStore) write(entries []*auth.CacheEntry) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock token store: %w", err)
	}
	defer s.lock.Unlock()

	plaintext, err := json.Marshal(document{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal token store: %w", err)
	}

	nonce := make([]byte, s.cipher.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.cipher.Seal(nonce, nonce, plaintext, nil)
	if err := os.WriteFile(s.filePath, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	return nil
}
