package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/models"
)

// AdminUserStore defines the interface for admin user management.
type AdminUserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int, search string) ([]*models.User, int64, error)
	UpdateUserStatus(ctx context.Context, id uuid.UUID, isActive bool) (*models.User, error)
	UpdateUserTier(ctx context.Context, id, tierID uuid.UUID) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	GetTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error)
	CreatePromotion(ctx context.Context, userID, fromTierID, toTierID, promotedBy uuid.UUID, reason string) (*models.Promotion, error)
	ListPromotionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Promotion, error)
	ListPromotions(ctx context.Context, page, pageSize int) ([]*models.Promotion, int64, error)
}

// AdminUsersHandler handles admin-only user management endpoints.
type AdminUsersHandler struct {
	store  AdminUserStore
	logger zerolog.Logger
}

// NewAdminUsersHandler creates a new AdminUsersHandler.
func NewAdminUsersHandler(store AdminUserStore, logger zerolog.Logger) *AdminUsersHandler {
	return &AdminUsersHandler{
		store:  store,
		logger: logger.With().Str("component", "admin_users_handler").Logger(),
	}
}

// RegisterRoutes registers admin user routes on the admin router group.
func (h *AdminUsersHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.List)
		users.GET("/:id", h.Get)
		users.POST("/:id/status", h.SetStatus)
		users.POST("/:id/promote", h.Promote)
		users.GET("/:id/promotions", h.UserPromotions)
		users.DELETE("/:id", h.Delete)
	}
	r.GET("/promotions", h.Promotions)
}

// List returns a page of users with an optional email search.
// GET /api/v1/admin/users
func (h *AdminUsersHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.store.ListUsers(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	c.JSON(http.StatusOK, gin.H{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns a user by ID.
// GET /api/v1/admin/users/:id
func (h *AdminUsersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type setStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetStatus activates or deactivates an account. Deactivation takes
// effect on the user's next request; existing JWTs stop working because
// the auth middleware re-reads the user row every time.
// POST /api/v1/admin/users/:id/status
func (h *AdminUsersHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
		return
	}

	user, err := h.store.UpdateUserStatus(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Bool("is_active", user.IsActive).
		Msg("user status changed")
	c.JSON(http.StatusOK, user)
}

type promoteRequest struct {
	TierID uuid.UUID `json:"tier_id" binding:"required"`
	Reason string    `json:"reason"`
}

// Promote moves a user to another tier and records the change in the
// promotion audit trail.
//
//	@Summary		Change a user's tier
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"User ID"
//	@Param			request	body		promoteRequest	true	"Target tier"
//	@Success		200		{object}	models.User
//	@Failure		404		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/api/v1/admin/users/{id}/promote [post]
func (h *AdminUsersHandler) Promote(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier_id is required"})
		return
	}

	// Resolve both sides before mutating so a bad tier ID fails cleanly.
	target, err := h.store.GetTierByID(c.Request.Context(), req.TierID)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	fromTierID := user.TierID

	updated, err := h.store.UpdateUserTier(c.Request.Context(), id, target.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.store.CreatePromotion(c.Request.Context(), id, fromTierID, target.ID, identity.UserID, req.Reason); err != nil {
		// The tier change already happened; a missing audit row is
		// logged rather than unwound.
		h.logger.Error().Err(err).Str("user_id", id.String()).Msg("promotion audit record failed")
	}

	h.logger.Info().
		Str("user_id", id.String()).
		Str("from_tier", fromTierID.String()).
		Str("to_tier", target.ID.String()).
		Str("promoted_by", identity.UserID.String()).
		Msg("user tier changed")
	c.JSON(http.StatusOK, updated)
}

// UserPromotions returns a user's tier change history, newest first.
// GET /api/v1/admin/users/:id/promotions
func (h *AdminUsersHandler) UserPromotions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	promotions, err := h.store.ListPromotionsByUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if promotions == nil {
		promotions = []*models.Promotion{}
	}

	c.JSON(http.StatusOK, gin.H{"promotions": promotions})
}

// Promotions returns the global tier change history, paginated.
// GET /api/v1/admin/promotions
func (h *AdminUsersHandler) Promotions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	promotions, total, err := h.store.ListPromotions(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	if promotions == nil {
		promotions = []*models.Promotion{}
	}

	c.JSON(http.StatusOK, gin.H{
		"promotions": promotions,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}

// Delete removes a user and, through cascading deletes, their variables
// and API keys. The stored documents become orphan blobs collected by
// the reconciliation sweep.
// DELETE /api/v1/admin/users/:id
func (h *AdminUsersHandler) Delete(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	if id == identity.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", id.String()).
		Str("deleted_by", identity.UserID.String()).
		Msg("user deleted")
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
