package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/models"
	"github.com/varhold/varhold/internal/quota"
)

// APIKeyStore defines the interface for API key persistence operations.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, userID uuid.UUID, name, keyHash, prefix string, expiresAt *time.Time) (*models.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	CountActiveAPIKeysByUser(ctx context.Context, userID uuid.UUID) (int, error)
	RevokeAPIKey(ctx context.Context, id, userID uuid.UUID) error
	DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) error
}

// APIKeysHandler handles API key management endpoints.
type APIKeysHandler struct {
	store  APIKeyStore
	logger zerolog.Logger
}

// NewAPIKeysHandler creates a new APIKeysHandler.
func NewAPIKeysHandler(store APIKeyStore, logger zerolog.Logger) *APIKeysHandler {
	return &APIKeysHandler{
		store:  store,
		logger: logger.With().Str("component", "apikeys_handler").Logger(),
	}
}

// RegisterRoutes registers API key routes on the given router group.
func (h *APIKeysHandler) RegisterRoutes(r *gin.RouterGroup) {
	keys := r.Group("/api-keys")
	{
		keys.GET("", h.List)
		keys.POST("", h.Create)
		keys.POST("/:id/revoke", h.Revoke)
		keys.DELETE("/:id", h.Delete)
	}
}

type createAPIKeyRequest struct {
	Name      string     `json:"name" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type createAPIKeyResponse struct {
	Key *models.APIKey `json:"key"`
	// Secret is returned exactly once at creation. Only its hash is
	// stored.
	Secret string `json:"secret"`
}

// Create mints a new API key for the caller.
//
//	@Summary		Create an API key
//	@Description	Returns the key secret once; it cannot be retrieved again
//	@Tags			API Keys
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createAPIKeyRequest	true	"Key details"
//	@Success		201		{object}	createAPIKeyResponse
//	@Failure		402		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/api/v1/api-keys [post]
func (h *APIKeysHandler) Create(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiration must be in the future"})
		return
	}

	count, err := h.store.CountActiveAPIKeysByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !quota.CanCreateAPIKey(count, identity.Tier) {
		respondError(c, apperr.Newf(apperr.KindQuotaExceeded, "maximum %d API keys allowed", identity.Tier.MaxAPIKeys))
		return
	}

	secret, prefix, err := auth.GenerateAPIKey()
	if err != nil {
		h.logger.Error().Err(err).Msg("api key generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create API key"})
		return
	}

	keyHash, err := auth.HashSecret(secret)
	if err != nil {
		h.logger.Error().Err(err).Msg("api key hashing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create API key"})
		return
	}

	key, err := h.store.CreateAPIKey(c.Request.Context(), identity.UserID, req.Name, keyHash, prefix, req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", identity.UserID.String()).
		Str("api_key_id", key.ID.String()).
		Msg("api key created")
	c.JSON(http.StatusCreated, createAPIKeyResponse{Key: key, Secret: secret})
}

// List returns the caller's API keys. Secrets are never included.
// GET /api/v1/api-keys
func (h *APIKeysHandler) List(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	keys, err := h.store.ListAPIKeysByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if keys == nil {
		keys = []*models.APIKey{}
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

// Revoke deactivates an API key without deleting its record.
// POST /api/v1/api-keys/:id/revoke
func (h *APIKeysHandler) Revoke(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid API key ID"})
		return
	}

	if err := h.store.RevokeAPIKey(c.Request.Context(), id, identity.UserID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", identity.UserID.String()).
		Str("api_key_id", id.String()).
		Msg("api key revoked")
	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// Delete removes an API key record.
// DELETE /api/v1/api-keys/:id
func (h *APIKeysHandler) Delete(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid API key ID"})
		return
	}

	if err := h.store.DeleteAPIKey(c.Request.Context(), id, identity.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}
