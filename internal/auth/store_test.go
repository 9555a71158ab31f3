package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *SessionStore {
	t.Helper()
	return NewSessionStoreAt(filepath.Join(t.TempDir(), "session.json"))
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.Nil(t, store.Load())
	require.Empty(t, store.AccessToken())

	session := &Session{
		AccessToken:  "a1",
		RefreshToken: "r1",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		Email:        "user@example.com",
		DisplayName:  "User",
		Endpoint:     "https://api.example.com/v1",
	}
	require.NoError(t, store.Save(session))

	loaded := store.Load()
	require.NotNil(t, loaded)
	require.Equal(t, session, loaded)
	require.Equal(t, "a1", store.AccessToken())
	require.Equal(t, "r1", store.RefreshToken())
}

func TestUpdateTokensKeepsProfile(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.NoError(t, store.Save(&Session{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Email:        "user@example.com",
	}))

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateTokens("a2", "r2", expiry))

	loaded := store.Load()
	require.Equal(t, "a2", loaded.AccessToken)
	require.Equal(t, "r2", loaded.RefreshToken)
	require.Equal(t, expiry, loaded.ExpiresAt)
	require.Equal(t, "user@example.com", loaded.Email, "profile survives rotation")
}

func TestUpdateTokensKeepsRefreshTokenWhenOmitted(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.NoError(t, store.Save(&Session{AccessToken: "a1", RefreshToken: "r1"}))

	require.NoError(t, store.UpdateTokens("a2", "", time.Time{}))
	require.Equal(t, "r1", store.RefreshToken(), "backends that do not rotate keep the old refresh token")
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	require.NoError(t, store.Save(&Session{AccessToken: "a1"}))

	require.NoError(t, store.Clear())
	require.Nil(t, store.Load())
	require.NoError(t, store.Clear(), "clearing an absent session is not an error")
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := NewSessionStoreAt(path)
	require.Nil(t, store.Load())
}
