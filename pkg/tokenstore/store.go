// Package tokenstore contains the durable persistence layer for cached token
// records. The in-memory view, with its deduplication and normalization
// rules, lives in pkg/tokencache; stores only move bytes.
package tokenstore

import (
	"github.com/stratocloud/stratoctl/pkg/auth"
)

// Store describes durable persistence for cache entries.
//
// AddEntries and RemoveEntries receive the caller's full picture of the cache
// (the already-deduplicated batch plus the snapshot of what else is loaded)
// so that a store can rewrite its medium in one shot without re-reading it.
// The persisted format must round-trip every CacheEntry field, including
// provider-opaque extension fields, with no loss.
type Store interface {
	// LoadEntries returns all persisted entries.
	LoadEntries() ([]*auth.CacheEntry, error)

	// AddEntries persists newEntries alongside the existing snapshot.
	AddEntries(newEntries, existing []*auth.CacheEntry) error

	// RemoveEntries persists keep and discards remove.
	RemoveEntries(remove, keep []*auth.CacheEntry) error

	// Clear removes all persisted entries.
	Clear() error

	// IsSecure reports whether the backing medium offers OS-level secret
	// protection.
	IsSecure() bool
}

// document is the persisted file layout shared by the file and encrypted
// stores.
type document struct {
	Entries []*auth.CacheEntry `json:"entries"`
}
