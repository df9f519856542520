package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreyansh232/plandrift/internal/crypto"
	"github.com/shreyansh232/plandrift/internal/domain"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func testPair() domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestStore_EmptyWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")

	store, err := NewStore(path, crypto.NoopService{})
	require.NoError(t, err)

	assert.False(t, store.HasCredential())
	_, err = store.Tokens()
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestStore_SaveThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	pair := testPair()

	store, err := NewStore(path, crypto.NoopService{})
	require.NoError(t, err)
	require.NoError(t, store.Save(pair))
	assert.True(t, store.HasCredential())

	reloaded, err := NewStore(path, crypto.NoopService{})
	require.NoError(t, err)
	assert.True(t, reloaded.HasCredential())

	got, err := reloaded.Tokens()
	require.NoError(t, err)
	assert.Equal(t, pair, got)
}

func TestStore_EncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	cipher, err := crypto.NewAESGCMService(testKey)
	require.NoError(t, err)
	pair := testPair()

	store, err := NewStore(path, cipher)
	require.NoError(t, err)
	require.NoError(t, store.Save(pair))

	// The on-disk form must not contain the raw tokens.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), pair.AccessToken)

	reloaded, err := NewStore(path, cipher)
	require.NoError(t, err)
	got, err := reloaded.Tokens()
	require.NoError(t, err)
	assert.Equal(t, pair, got)
}

func TestStore_RefusesEmptyPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")

	store, err := NewStore(path, crypto.NoopService{})
	require.NoError(t, err)

	assert.Error(t, store.Save(domain.TokenPair{}))
}

func TestStore_ClearRemovesCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")

	store, err := NewStore(path, crypto.NoopService{})
	require.NoError(t, err)
	require.NoError(t, store.Save(testPair()))

	require.NoError(t, store.Clear())
	assert.False(t, store.HasCredential())
	assert.NoFileExists(t, path)

	// Clearing again is a no-op.
	assert.NoError(t, store.Clear())
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewStore(path, crypto.NoopService{})
	assert.Error(t, err)
}
