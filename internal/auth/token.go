// Package auth implements the credential layer: signed identity tokens
// and long-lived API keys. It performs no I/O; stores that persist or
// look up credentials are injected where needed.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
)

// Claims are the identity claims embedded in a session token.
type Claims struct {
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	TierID string          `json:"tier_id"`
	jwt.RegisteredClaims
}

// UserID parses the token subject as a user ID.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindAuthentication, "invalid user ID in token")
	}
	return id, nil
}

// TierUUID parses the tier claim as a UUID.
func (c *Claims) TierUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.TierID)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindAuthentication, "invalid tier ID in token")
	}
	return id, nil
}

// TokenIssuer mints and verifies HS256-signed session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer from an explicit secret and token
// lifetime. The secret is never read from the environment here so tests
// can inject isolated instances.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a signed token carrying the user's identity and tier.
func (i *TokenIssuer) Issue(userID uuid.UUID, email string, role models.UserRole, tierID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  email,
		Role:   role,
		TierID: tierID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its
// claims. Failures are classified: expired, signature mismatch, or
// malformed input.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.KindAuthentication, "token expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, apperr.Wrap(apperr.KindAuthentication, "token signature mismatch", err)
	default:
		return nil, apperr.Wrap(apperr.KindAuthentication, "invalid token", err)
	}
}
