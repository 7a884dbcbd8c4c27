package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried by the gateway session token.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	Name     string `json:"name,omitempty"`
	EntityID *int64 `json:"entity_id,omitempty"`
}

// Actor rebuilds the acting user from the token claims.
func (c *Claims) Actor() (Actor, error) {
	role, err := ParseRole(c.Role)
	if err != nil {
		return Actor{}, err
	}
	return Actor{CIN: c.Subject, Name: c.Name, Role: role, EntityID: c.EntityID}, nil
}

// IssueToken signs an HS256 session token for actor. The session id is stored
// in the jti claim.
func IssueToken(key []byte, sessionID string, a Actor, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(key) == 0 {
		return "", time.Time{}, errors.New("signing key is empty")
	}
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   a.CIN,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:     a.Role.String(),
		Name:     a.Name,
		EntityID: a.EntityID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// TokenExpired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens (not JWTs, or without exp) are never reported as expired; the
// backend decides for those.
func TokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}
