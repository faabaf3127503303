// Package middleware provides HTTP middleware for the Varhold API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/models"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// IdentityContextKey is the context key for the authenticated identity.
const IdentityContextKey ContextKey = "identity"

// Identity is the resolved caller: the tenant and the tier whose limits
// apply to this request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.UserRole
	Tier   *models.Tier
}

// IsAdmin reports whether the caller has the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == models.UserRoleAdmin
}

// AuthStore is the slice of the database the auth middleware needs.
type AuthStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error)
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID) error
}

// TokenVerifier validates a JWT and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware authenticates each request from its Bearer credential.
// Credentials carrying the API key marker take the key path; everything
// else is treated as a JWT.
func AuthMiddleware(store AuthStore, tokens TokenVerifier, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		credential := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		var identity *Identity
		var err error
		if strings.HasPrefix(credential, auth.APIKeyMarker) {
			identity, err = authenticateAPIKey(c, store, credential, log)
		} else {
			identity, err = authenticateToken(c, store, tokens, credential)
		}
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired credentials"})
			return
		}

		c.Set(string(IdentityContextKey), identity)
		c.Next()
	}
}

func authenticateAPIKey(c *gin.Context, store AuthStore, secret string, log zerolog.Logger) (*Identity, error) {
	ctx := c.Request.Context()

	if !auth.IsValidAPIKeyFormat(secret) {
		return nil, errUnknownCredential
	}

	candidates, err := store.GetAPIKeysByPrefix(ctx, auth.ExtractKeyPrefix(secret))
	if err != nil {
		return nil, err
	}

	// Prefixes are not unique, so every candidate is checked against the
	// presented secret.
	var matched *models.APIKey
	for _, candidate := range candidates {
		if auth.VerifySecret(secret, candidate.KeyHash) {
			matched = candidate
			break
		}
	}
	if matched == nil {
		return nil, errUnknownCredential
	}
	if !matched.IsValid() {
		return nil, errRevokedCredential
	}

	identity, err := loadIdentity(ctx, store, matched.UserID)
	if err != nil {
		return nil, err
	}

	if err := store.TouchAPIKey(ctx, matched.ID); err != nil {
		log.Warn().Err(err).Str("api_key_id", matched.ID.String()).Msg("failed to update key last use")
	}
	return identity, nil
}

func authenticateToken(c *gin.Context, store AuthStore, tokens TokenVerifier, token string) (*Identity, error) {
	claims, err := tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return loadIdentity(c.Request.Context(), store, userID)
}

// loadIdentity fetches the user and tier rows backing a credential. Both
// lookups hit the database on every request so revocations and tier
// changes take effect immediately.
func loadIdentity(ctx context.Context, store AuthStore, userID uuid.UUID) (*Identity, error) {
	user, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errInactiveAccount
	}

	tier, err := store.GetTierByID(ctx, user.TierID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Tier:   tier,
	}, nil
}

// RequireIdentity returns the authenticated identity or writes a 401
// and returns nil. Handlers must return immediately on nil.
func RequireIdentity(c *gin.Context) *Identity {
	identity := GetIdentity(c)
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil
	}
	return identity
}

// GetIdentity retrieves the authenticated identity from the Gin context.
// Returns nil if the request is unauthenticated.
func GetIdentity(c *gin.Context) *Identity {
	v, exists := c.Get(string(IdentityContextKey))
	if !exists {
		return nil
	}
	identity, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return identity
}
