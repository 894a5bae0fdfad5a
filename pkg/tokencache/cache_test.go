// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package tokencache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

// fakeStore records calls and serves a canned entry set. It lets the tests
// observe exactly what the cache persists without touching the filesystem.
type fakeStore struct {
	persisted []*auth.CacheEntry
	loadCalls int
	loadErr   error
	addErr    error
	removeErr error
	clearErr  error
	secure    bool

	lastAdded    []*auth.CacheEntry
	lastExisting []*auth.CacheEntry
	lastRemoved  []*auth.CacheEntry
	lastKept     []*auth.CacheEntry
}

func (f *fakeStore) LoadEntries() ([]*auth.CacheEntry, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]*auth.CacheEntry, len(f.persisted))
	copy(out, f.persisted)
	return out, nil
}

func (f *fakeStore) AddEntries(newEntries, existing []*auth.CacheEntry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.lastAdded = newEntries
	f.lastExisting = existing
	f.persisted = append(append([]*auth.CacheEntry{}, existing...), newEntries...)
	return nil
}

func (f *fakeStore) RemoveEntries(remove, keep []*auth.CacheEntry) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.lastRemoved = remove
	f.lastKept = keep
	f.persisted = append([]*auth.CacheEntry{}, keep...)
	return nil
}

func (f *fakeStore) Clear() error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.persisted = nil
	return nil
}

func (f *fakeStore) IsSecure() bool { return f.secure }

func entry(userID, accessToken string, expiresOn time.Time) *auth.CacheEntry {
	return &auth.CacheEntry{
		Authority:    "https://login.stratocloud.io/t1",
		ClientID:     "c1",
		UserID:       userID,
		TenantID:     "t1",
		Resource:     "https://management.stratocloud.io",
		AccessToken:  accessToken,
		RefreshToken: "refresh",
		ExpiresOn:    expiresOn,
	}
}

var (
	t1 = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
)

func TestCache_LazySingleLoad(t *testing.T) {
	t.Parallel()

	store := &fakeStore{persisted: []*auth.CacheEntry{entry("a@x.com", "tok1", t1)}}
	cache := New(store)

	assert.Zero(t, store.loadCalls, "construction must not touch the store")

	_, err := cache.Find(auth.Query{})
	require.NoError(t, err)
	_, err = cache.Find(auth.Query{})
	require.NoError(t, err)
	require.NoError(t, cache.Add([]*auth.CacheEntry{entry("b@x.com", "tok2", t1)}))

	assert.Equal(t, 1, store.loadCalls, "the store is read exactly once per process")
}

func TestCache_FindCaseInsensitiveUserID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{persisted: []*auth.CacheEntry{entry("foo@bar.com", "tok1", t1)}}
	cache := New(store)

	upper, err := cache.Find(auth.Query{UserID: "Foo@Bar.com"})
	require.NoError(t, err)
	lower, err := cache.Find(auth.Query{UserID: "foo@bar.com"})
	require.NoError(t, err)

	require.Len(t, upper, 1)
	require.Len(t, lower, 1)
	assert.True(t, upper[0].EqualIgnoringExpiry(lower[0]))
}

func TestCache_FindSupersetMatch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{persisted: []*auth.CacheEntry{
		entry("a@x.com", "tok1", t1),
		entry("b@x.com", "tok2", t1),
	}}
	cache := New(store)

	matches, err := cache.Find(auth.Query{ClientID: "c1"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = cache.Find(auth.Query{UserID: "a@x.com", TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Zero matches is an empty result, not a failure.
	matches, err = cache.Find(auth.Query{UserID: "nobody@x.com"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCache_AddNormalizesUserID(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := New(store)

	require.NoError(t, cache.Add([]*auth.CacheEntry{entry("Mixed@Case.com", "tok1", t1)}))

	require.Len(t, store.lastAdded, 1)
	assert.Equal(t, "mixed@case.com", store.lastAdded[0].UserID)
}

func TestCache_AddDedupIgnoresExpiry(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := New(store)

	require.NoError(t, cache.Add([]*auth.CacheEntry{entry("a@x.com", "tok1", t1)}))

	// Same entry, different expiry: must not grow the store.
	store.lastAdded = nil
	require.NoError(t, cache.Add([]*auth.CacheEntry{entry("a@x.com", "tok1", t2)}))
	assert.Nil(t, store.lastAdded, "duplicate batch must not reach the store")
	assert.Len(t, store.persisted, 1)

	// Case differences in the user ID do not defeat the dedup either.
	require.NoError(t, cache.Add([]*auth.CacheEntry{entry("A@X.COM", "tok1", t2)}))
	assert.Len(t, store.persisted, 1)
}

func TestCache_AddRefreshReplaces(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := New(store)

	stale := entry("a@x.com", "tok1", t1)
	require.NoError(t, cache.Add([]*auth.CacheEntry{stale}))

	// A refreshed token differs in AccessToken, so it is not a duplicate;
	// the authentication context removes the stale entry first.
	require.NoError(t, cache.Remove([]*auth.CacheEntry{stale}))
	refreshed := entry("a@x.com", "tok2", t2)
	require.NoError(t, cache.Add([]*auth.CacheEntry{refreshed}))

	assert.Len(t, store.persisted, 1)
	assert.Equal(t, "tok2", store.persisted[0].AccessToken)
}

func TestCache_AddDedupWithinBatch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := New(store)

	require.NoError(t, cache.Add([]*auth.CacheEntry{
		entry("a@x.com", "tok1", t1),
		entry("a@x.com", "tok1", t2),
		entry("b@x.com", "tok2", t1),
	}))

	assert.Len(t, store.persisted, 2)
}

func TestCache_AddDoesNotMutateCallerEntries(t *testing.T) {
	t.Parallel()

	cache := New(&fakeStore{})

	original := entry("Mixed@Case.com", "tok1", t1)
	require.NoError(t, cache.Add([]*auth.CacheEntry{original}))

	assert.Equal(t, "Mixed@Case.com", original.UserID, "normalization must act on a copy")
}

func TestCache_RemoveIgnoresExpiry(t *testing.T) {
	t.Parallel()

	cached := entry("a@x.com", "tok1", t1)
	other := entry("b@x.com", "tok2", t1)
	store := &fakeStore{persisted: []*auth.CacheEntry{cached, other}}
	cache := New(store)

	// The removal request differs from the cached entry only in expiry.
	request := entry("a@x.com", "tok1", t2)
	require.NoError(t, cache.Remove([]*auth.CacheEntry{request}))

	require.Len(t, store.lastRemoved, 1)
	assert.Equal(t, "a@x.com", store.lastRemoved[0].UserID)
	require.Len(t, store.lastKept, 1)
	assert.Equal(t, "b@x.com", store.lastKept[0].UserID)

	// The in-memory view is now the keep partition.
	matches, err := cache.Find(auth.Query{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b@x.com", matches[0].UserID)
}

func TestCache_RemoveNormalizesRequestUserIDs(t *testing.T) {
	t.Parallel()

	cached := entry("a@x.com", "tok1", t1)
	store := &fakeStore{persisted: []*auth.CacheEntry{cached}}
	cache := New(store)

	request := entry("A@X.com", "tok1", t1)
	require.NoError(t, cache.Remove([]*auth.CacheEntry{request}))

	matches, err := cache.Find(auth.Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCache_ClearResetsInMemoryView(t *testing.T) {
	t.Parallel()

	store := &fakeStore{persisted: []*auth.CacheEntry{entry("a@x.com", "tok1", t1)}}
	cache := New(store)

	matches, err := cache.Find(auth.Query{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.NoError(t, cache.Clear())

	matches, err = cache.Find(auth.Query{})
	require.NoError(t, err)
	assert.Empty(t, matches, "a cleared cache must look cleared without a process restart")
}

func TestCache_StorageErrorsPropagateUnchanged(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("keyring locked by session manager")
	cache := New(&fakeStore{loadErr: loadErr})
	_, err := cache.Find(auth.Query{})
	assert.ErrorIs(t, err, loadErr)

	addErr := errors.New("disk full")
	cache = New(&fakeStore{addErr: addErr})
	err = cache.Add([]*auth.CacheEntry{entry("a@x.com", "tok1", t1)})
	assert.ErrorIs(t, err, addErr)

	removeErr := errors.New("store sealed")
	cache = New(&fakeStore{persisted: []*auth.CacheEntry{entry("a@x.com", "tok1", t1)}, removeErr: removeErr})
	err = cache.Remove([]*auth.CacheEntry{entry("a@x.com", "tok1", t1)})
	assert.ErrorIs(t, err, removeErr)

	clearErr := errors.New("clear failed")
	cache = New(&fakeStore{clearErr: clearErr})
	assert.ErrorIs(t, cache.Clear(), clearErr)
}

func TestCache_AddFailureLeavesMemoryUntouched(t *testing.T) {
	t.Parallel()

	store := &fakeStore{addErr: errors.New("write failed")}
	cache := New(store)

	require.Error(t, cache.Add([]*auth.CacheEntry{entry("a@x.com", "tok1", t1)}))

	matches, err := cache.Find(auth.Query{})
	require.NoError(t, err)
	assert.Empty(t, matches, "a failed persist must not appear in the in-memory view")
}

func TestCache_DeviceFlowOverride(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := New(store)

	cache.SetDeviceFlowUserID("Pending@X.com")

	// The device-code token comes back with the common authority and no
	// user identity; the override supplies the latter and the resolved
	// tenant retargets the former.
	deviceEntry := &auth.CacheEntry{
		Authority:   "https://login.stratocloud.io/common",
		ClientID:    "c1",
		TenantID:    "t42",
		Resource:    "https://management.stratocloud.io",
		AccessToken: "tok-dev",
		ExpiresOn:   t1,
	}
	require.NoError(t, cache.Add([]*auth.CacheEntry{deviceEntry}))

	require.Len(t, store.lastAdded, 1)
	assert.Equal(t, "pending@x.com", store.lastAdded[0].UserID)
	assert.Equal(t, "https://login.stratocloud.io/t42", store.lastAdded[0].Authority)

	// While the override is active, finds are forced to the pending user.
	matches, err := cache.Find(auth.Query{UserID: "someone-else@x.com"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pending@x.com", matches[0].UserID)

	// Clearing the override restores normal matching.
	cache.ClearDeviceFlowUserID()
	matches, err = cache.Find(auth.Query{UserID: "someone-else@x.com"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCache_IsSecure(t *testing.T) {
	t.Parallel()

	assert.False(t, New(&fakeStore{}).IsSecure())
	assert.True(t, New(&fakeStore{secure: true}).IsSecure())
}
