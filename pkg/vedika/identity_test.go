package vedika

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "dev_test",
	})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestSessionValid(t *testing.T) {
	now := time.Now()

	t.Run("empty session id", func(t *testing.T) {
		id := &Identity{DeviceID: "dev_1"}
		assert.False(t, id.SessionValid(now))
	})

	t.Run("stored expiry in the future", func(t *testing.T) {
		id := &Identity{SessionID: "opaque", ExpiresAt: now.Add(time.Hour).UnixMilli()}
		assert.True(t, id.SessionValid(now))
	})

	t.Run("stored expiry in the past", func(t *testing.T) {
		id := &Identity{SessionID: "opaque", ExpiresAt: now.Add(-time.Minute).UnixMilli()}
		assert.False(t, id.SessionValid(now))
	})

	t.Run("jwt exp in the future", func(t *testing.T) {
		id := &Identity{SessionID: signedToken(t, now.Add(time.Hour))}
		assert.True(t, id.SessionValid(now))
	})

	t.Run("jwt exp in the past", func(t *testing.T) {
		id := &Identity{SessionID: signedToken(t, now.Add(-time.Hour))}
		assert.False(t, id.SessionValid(now))
	})

	t.Run("jwt without exp claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "dev_test"})
		s, err := token.SignedString([]byte("test-key"))
		require.NoError(t, err)
		id := &Identity{SessionID: s}
		assert.True(t, id.SessionValid(now))
	})

	t.Run("opaque id without expiry hint", func(t *testing.T) {
		// Server-side validation gets to decide.
		id := &Identity{SessionID: "sess-opaque"}
		assert.True(t, id.SessionValid(now))
	})
}

func TestFileIdentityStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	store := NewFileIdentityStore(path)

	saved := &Identity{
		DeviceID:  "dev_rt",
		SessionID: "sess-rt",
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileIdentityStoreMissingFile(t *testing.T) {
	store := NewFileIdentityStore(filepath.Join(t.TempDir(), "absent.json"))

	id, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, id.DeviceID)
	assert.Empty(t, id.SessionID)
}

func TestFileIdentityStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	id, err := NewFileIdentityStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, id.DeviceID)
}

func TestNewDeviceID(t *testing.T) {
	a := NewDeviceID()
	b := NewDeviceID()
	assert.True(t, len(a) > 4 && a[:4] == "dev_")
	assert.NotEqual(t, a, b)
}
