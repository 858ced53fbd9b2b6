package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer token cannot be parsed or lacks
// the group claim.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims are the claims the ledger service embeds in its share tokens.
type TokenClaims struct {
	GroupID string `json:"group_id"`
	jwt.RegisteredClaims
}

// ParseToken extracts claims without verifying the signature. The signing
// secret lives only on the server; locally the claims are used to key
// cache and queue entries by group id and to display expiry.
func ParseToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.GroupID == "" {
		return nil, fmt.Errorf("%w: missing group_id claim", ErrInvalidToken)
	}
	return claims, nil
}

// Expired reports whether the expiry claim has passed. Tokens without an
// expiry never expire.
func (c *TokenClaims) Expired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now())
}

// GroupIDFromToken returns the group id a token grants access to.
func GroupIDFromToken(token string) (string, error) {
	claims, err := ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.GroupID, nil
}
