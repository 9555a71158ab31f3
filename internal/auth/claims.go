package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the CLI reads locally.
// The token is decoded without signature verification — the backend is the
// authority; the CLI only inspects expiry and identity for display.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// DecodeClaims decodes the payload of a JWT without verifying the signature.
func DecodeClaims(token string) (*Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return &Claims{}, nil
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// ExpiringSoon reports whether the token expires within the given window.
// Tokens without an exp claim never report as expiring: the 401-driven
// refresh path is the fallback for those.
func ExpiringSoon(token string, window time.Duration) bool {
	claims, err := DecodeClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(claims.ExpiresAt) <= window
}
