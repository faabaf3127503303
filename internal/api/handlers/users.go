package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/models"
)

// ProfileStore defines the interface for profile persistence operations.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	CountVariablesByUser(ctx context.Context, userID uuid.UUID) (int, error)
	CountActiveAPIKeysByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// UsersHandler handles the caller's own account endpoints.
type UsersHandler struct {
	store  ProfileStore
	logger zerolog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(store ProfileStore, logger zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  store,
		logger: logger.With().Str("component", "users_handler").Logger(),
	}
}

// RegisterRoutes registers profile routes on the given router group.
func (h *UsersHandler) RegisterRoutes(r *gin.RouterGroup) {
	me := r.Group("/me")
	{
		me.GET("", h.Profile)
		me.POST("/password", h.ChangePassword)
	}
}

// Profile returns the caller's account, tier and resource counts.
// GET /api/v1/me
func (h *UsersHandler) Profile(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	variableCount, err := h.store.CountVariablesByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	keyCount, err := h.store.CountActiveAPIKeysByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
		"tier": identity.Tier,
		"usage": gin.H{
			"variables":     variableCount,
			"max_variables": identity.Tier.MaxVariables,
			"api_keys":      keyCount,
			"max_api_keys":  identity.Tier.MaxAPIKeys,
		},
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword verifies the current password and replaces it.
// POST /api/v1/me/password
func (h *UsersHandler) ChangePassword(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_password and new_password are required"})
		return
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !auth.VerifySecret(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	newHash, err := auth.HashSecret(req.NewPassword)
	if err != nil {
		h.logger.Error().Err(err).Msg("password hashing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	if err := h.store.UpdateUserPassword(c.Request.Context(), identity.UserID, newHash); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().Str("user_id", identity.UserID.String()).Msg("password changed")
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
