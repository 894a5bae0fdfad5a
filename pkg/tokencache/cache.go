// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tokencache provides the in-memory, lazily-loaded, deduplicating
// view over a token store. It owns the normalization and equality rules for
// cached credentials; the store underneath only moves bytes.
package tokencache

import (
	"sync"

	"github.com/stratocloud/stratoctl/pkg/auth"
	"github.com/stratocloud/stratoctl/pkg/tokenstore"
)

// Cache is the deduplicating view over a tokenstore.Store.
//
// The loaded entry slice is the source of truth for the process lifetime:
// the store is read exactly once, on first access, and never re-validated
// against the medium. All mutations are serialized through one mutex because
// the dedup logic reads then writes the full slice non-atomically.
type Cache struct {
	store tokenstore.Store

	mu      sync.Mutex
	loaded  bool
	entries []*auth.CacheEntry

	// deviceFlowUserID, when set, forces the user identity on finds and
	// adds while a device-code login is in flight. The device-code flow
	// resolves the real identity and tenant only after the fact.
	deviceFlowUserID string
}

// New creates a cache over the given store. Nothing is read until first use.
func New(store tokenstore.Store) *Cache {
	return &Cache{store: store}
}

// Find returns all entries matching the query. The query's user ID is
// normalized to lower case before comparison; an active device-flow override
// replaces it entirely. Zero matches is an empty result, not a failure.
func (c *Cache) Find(query auth.Query) ([]*auth.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	if c.deviceFlowUserID != "" {
		query.UserID = c.deviceFlowUserID
	} else {
		query.UserID = auth.NormalizeUserID(query.UserID)
	}

	var matches []*auth.CacheEntry
	for _, entry := range c.entries {
		if query.Matches(entry) {
			matches = append(matches, entry.Clone())
		}
	}
	return matches, nil
}

// Add normalizes and persists the given entries, dropping any that duplicate
// an already-cached entry (structural equality ignoring expiry). Storage
// errors surface unchanged; the dedup and normalization themselves never fail.
func (c *Cache) Add(entries []*auth.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(); err != nil {
		return err
	}

	var deduped []*auth.CacheEntry
	for _, entry := range entries {
		candidate := c.normalizeLocked(entry)
		if c.isDuplicateLocked(candidate, deduped) {
			continue
		}
		deduped = append(deduped, candidate)
	}
	if len(deduped) == 0 {
		return nil
	}

	if err := c.store.AddEntries(deduped, c.snapshotLocked()); err != nil {
		return err
	}
	c.entries = append(c.entries, deduped...)
	return nil
}

// Remove partitions the loaded set against the removal request (matching
// ignores expiry, so a request built from a stale token still removes its
// refreshed successor's sibling) and persists the partition.
func (c *Cache) Remove(entries []*auth.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoadedLocked(); err != nil {
		return err
	}

	// Removal requests use the plain normalization; the device-flow
	// override only affects Find and Add.
	normalized := make([]*auth.CacheEntry, 0, len(entries))
	for _, entry := range entries {
		clone := entry.Clone()
		clone.UserID = auth.NormalizeUserID(clone.UserID)
		normalized = append(normalized, clone)
	}

	var remove, keep []*auth.CacheEntry
	for _, entry := range c.entries {
		matched := false
		for _, target := range normalized {
			if entry.EqualIgnoringExpiry(target) {
				matched = true
				break
			}
		}
		if matched {
			remove = append(remove, entry)
		} else {
			keep = append(keep, entry)
		}
	}

	if err := c.store.RemoveEntries(remove, keep); err != nil {
		return err
	}
	c.entries = keep
	return nil
}

// Clear empties the store and the in-memory view.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return err
	}
	c.entries = nil
	c.loaded = true
	return nil
}

// SetDeviceFlowUserID forces the given identity on subsequent Find and Add
// calls for the duration of a device-code login. Entries added while the
// override is active also have their common-tenant authority retargeted to
// the entry's resolved tenant.
func (c *Cache) SetDeviceFlowUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceFlowUserID = auth.NormalizeUserID(userID)
}

// ClearDeviceFlowUserID ends the device-flow override. Callers must pair this
// with SetDeviceFlowUserID so the override cannot leak into a later login.
func (c *Cache) ClearDeviceFlowUserID() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceFlowUserID = ""
}

// IsSecure reports whether the backing store offers OS-level secret protection.
func (c *Cache) IsSecure() bool {
	return c.store.IsSecure()
}

func (c *Cache) ensureLoadedLocked() error {
	if c.loaded {
		return nil
	}
	entries, err := c.store.LoadEntries()
	if err != nil {
		return err
	}
	c.entries = entries
	c.loaded = true
	return nil
}

// normalizeLocked clones the entry and applies the storage normalization
// rules: lower-cased user ID and, while a device-flow override is active, the
// forced identity plus the authority retarget from /common to the resolved
// tenant.
func (c *Cache) normalizeLocked(entry *auth.CacheEntry) *auth.CacheEntry {
	normalized := entry.Clone()
	if c.deviceFlowUserID != "" {
		normalized.UserID = c.deviceFlowUserID
		normalized.Authority = auth.RetargetAuthority(normalized.Authority, normalized.TenantID)
	} else {
		normalized.UserID = auth.NormalizeUserID(normalized.UserID)
	}
	return normalized
}

func (c *Cache) isDuplicateLocked(candidate *auth.CacheEntry, batch []*auth.CacheEntry) bool {
	for _, existing := range c.entries {
		if existing.EqualIgnoringExpiry(candidate) {
			return true
		}
	}
	for _, accepted := range batch {
		if accepted.EqualIgnoringExpiry(candidate) {
			return true
		}
	}
	return false
}

func (c *Cache) snapshotLocked() []*auth.CacheEntry {
	snapshot := make([]*auth.CacheEntry, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot
}
