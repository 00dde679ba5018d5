package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/you/storefront/domain"
)

// ErrNoExpiry is returned for tokens that carry no exp claim
var ErrNoExpiry = errors.New("token has no expiry claim")

// JWTInspector implements domain.TokenInspector. The client never holds the
// signing key, so claims are read without verification and only used to
// decide when to refresh.
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new inspector
func NewJWTInspector() domain.TokenInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// ExpiresAt implements domain.TokenInspector
func (j *JWTInspector) ExpiresAt(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := j.parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}
