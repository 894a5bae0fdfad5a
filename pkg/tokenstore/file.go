package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

// FileStore persists entries as a plaintext JSON file. Access is serialized
// through a sibling lock file so concurrent CLI invocations do not interleave
// writes.
type FileStore struct {
	filePath string
	lock     *flock.Flock
}

// NewFileStore creates a file-backed store at the given path, creating parent
// directories as needed.
func NewFileStore(filePath string) (*FileStore, error) {
	filePath = filepath.Clean(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}
	return &FileStore{
		filePath: filePath,
		lock:     flock.New(filePath + ".lock"),
	}, nil
}

// LoadEntries returns all persisted entries. A missing file is an empty
// store, not an error.
func (s *FileStore) LoadEntries() ([]*auth.CacheEntry, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock token store: %w", err)
	}
	defer s.lock.Unlock()

	return s.readLocked()
}

// AddEntries persists newEntries alongside the existing snapshot.
func (s *FileStore) AddEntries(newEntries, existing []*auth.CacheEntry) error {
	combined := make([]*auth.CacheEntry, 0, len(existing)+len(newEntries))
	combined = append(combined, existing...)
	combined = append(combined, newEntries...)
	return s.write(combined)
}

// RemoveEntries persists keep and discards remove.
func (s *FileStore) RemoveEntries(_, keep []*auth.CacheEntry) error {
	return s.write(keep)
}

// Clear removes all persisted entries.
func (s *FileStore) Clear() error {
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

// IsSecure reports that plaintext files carry no OS-level protection.
func (*FileStore) IsSecure() bool {
	return false
}

func (s *FileStore) readLocked() ([]*auth.CacheEntry, error) {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode token store: %w", err)
	}
	return doc.Entries, nil
}

func (s *FileStore) write(entries []*auth.CacheEntry) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock token store: %w", err)
	}
	defer s.lock.Unlock()

	contents, err := json.Marshal(document{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal token store: %w", err)
	}

	if err := os.WriteFile(s.filePath, contents, 0600); err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	return nil
}
