package tokenstore

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratocloud/stratoctl/pkg/auth"
)

func testKey(password string) []byte {
	key := sha256.Sum256([]byte(password))
	return key[:]
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens_encrypted")
	store, err := NewEncryptedStore(path, testKey("correct horse"))
	require.NoError(t, err)

	entry := testEntry("a@x.com", "tok1")
	require.NoError(t, store.AddEntries([]*auth.CacheEntry{entry}, nil))

	// Reopen with the same key; contents must survive.
	reopened, err := NewEncryptedStore(path, testKey("correct horse"))
	require.NoError(t, err)

	entries, err := reopened.LoadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entry.EqualIgnoringExpiry(entries[0]))

	// The on-disk form must not contain the token in the clear.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok1")
}

func TestEncryptedStoreWrongKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens_encrypted")
	store, err := NewEncryptedStore(path, testKey("right"))
	require.NoError(t, err)
	require.NoError(t, store.AddEntries([]*auth.CacheEntry{testEntry("a@x.com", "tok1")}, nil))

	// Opening with a different key must fail up front.
	_, err = NewEncryptedStore(path, testKey("wrong"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestEncryptedStoreInvalidKeySize(t *testing.T) {
	t.Parallel()

	_, err := NewEncryptedStore(filepath.Join(t.TempDir(), "tokens"), []byte("short"))
	require.Error(t, err)
}

func TestEncryptedStoreClearAndIsSecure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens_encrypted")
	store, err := NewEncryptedStore(path, testKey("pw"))
	require.NoError(t, err)
	assert.True(t, store.IsSecure())

	require.NoError(t, store.AddEntries([]*auth.CacheEntry{testEntry("a@x.com", "tok1")}, nil))
	require.NoError(t, store.Clear())

	entries, err := store.LoadEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseProviderType(t *testing.T) {
	t.Parallel()

	parsed, err := ParseProviderType("file")
	require.NoError(t, err)
	assert.Equal(t, FileType, parsed)

	parsed, err = ParseProviderType("encrypted")
	require.NoError(t, err)
	assert.Equal(t, EncryptedType, parsed)

	_, err = ParseProviderType("vault")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProviderType)
}
