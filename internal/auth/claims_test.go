package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{
		"sub":   "user-42",
		"email": "user@example.com",
		"exp":   expiry.Unix(),
	})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)
	require.True(t, claims.ExpiresAt.Equal(expiry))
}

func TestDecodeClaimsRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeClaims("not-a-jwt")
	require.Error(t, err)
}

func TestExpiringSoon(t *testing.T) {
	t.Parallel()

	soon := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(2 * time.Minute).Unix()})
	require.True(t, ExpiringSoon(soon, 5*time.Minute))
	require.False(t, ExpiringSoon(soon, 1*time.Minute))

	// No exp claim: never proactively refreshed, the 401 path handles it.
	noExp := signedToken(t, jwt.MapClaims{"sub": "user-42"})
	require.False(t, ExpiringSoon(noExp, 5*time.Minute))

	require.False(t, ExpiringSoon("garbage", 5*time.Minute))
}
