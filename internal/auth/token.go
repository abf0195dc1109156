// Package auth provides bearer-token issuance and verification, plus the
// HTTP middleware that turns an Authorization header into a request principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by issued tokens. The subject claim holds the
// user ID; email rides along so callers can log it without a lookup.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 bearer tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager. The secret is mandatory: issuing
// unsigned or guessably-signed tokens is never acceptable, so construction
// fails rather than falling back to a default.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// Issue creates a signed token for the given user, valid for the configured TTL.
func (m *Manager) Issue(userID uuid.UUID, email string) (string, error) {
	now := time.Now()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning the user ID and email
// it carries. Bad signature, wrong signing method, expiry, and a non-UUID
// subject all fail.
func (m *Manager) Verify(tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, "", errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid subject claim: %w", err)
	}

	return userID, claims.Email, nil
}

// TTL reports the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
