package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/db"
	"github.com/varhold/varhold/internal/models"
)

// TierStore defines the interface for tier persistence operations.
type TierStore interface {
	CreateTier(ctx context.Context, tier *models.Tier) (*models.Tier, error)
	GetTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error)
	ListTiers(ctx context.Context, activeOnly bool) ([]*models.Tier, error)
	UpdateTier(ctx context.Context, id uuid.UUID, upd db.TierUpdate) (*models.Tier, error)
	DeleteTier(ctx context.Context, id uuid.UUID) error
}

// TiersHandler handles tier management endpoints. Listing is available
// to every authenticated caller; mutation is admin-only.
type TiersHandler struct {
	store  TierStore
	logger zerolog.Logger
}

// NewTiersHandler creates a new TiersHandler.
func NewTiersHandler(store TierStore, logger zerolog.Logger) *TiersHandler {
	return &TiersHandler{
		store:  store,
		logger: logger.With().Str("component", "tiers_handler").Logger(),
	}
}

// RegisterRoutes registers the public tier listing on the authenticated
// group.
func (h *TiersHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tiers", h.List)
}

// RegisterAdminRoutes registers tier mutation routes on the admin group.
func (h *TiersHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	tiers := r.Group("/tiers")
	{
		tiers.POST("", h.Create)
		tiers.GET("/:id", h.Get)
		tiers.PATCH("/:id", h.Update)
		tiers.DELETE("/:id", h.Delete)
	}
}

type createTierRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	MaxVariables      int    `json:"max_variables" binding:"required,min=1"`
	MaxVariableSizeMB int    `json:"max_variable_size_mb" binding:"required,min=1"`
	MaxRequestsPerDay int    `json:"max_requests_per_day" binding:"required,min=1"`
	MaxAPIKeys        int    `json:"max_api_keys" binding:"required,min=1"`
	PriceMonthly      int    `json:"price_monthly" binding:"min=0"`
}

type updateTierRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	MaxVariables      *int    `json:"max_variables"`
	MaxVariableSizeMB *int    `json:"max_variable_size_mb"`
	MaxRequestsPerDay *int    `json:"max_requests_per_day"`
	MaxAPIKeys        *int    `json:"max_api_keys"`
	PriceMonthly      *int    `json:"price_monthly"`
	IsActive          *bool   `json:"is_active"`
}

// List returns tiers. Admins see inactive tiers too.
// GET /api/v1/tiers
func (h *TiersHandler) List(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	tiers, err := h.store.ListTiers(c.Request.Context(), !identity.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	if tiers == nil {
		tiers = []*models.Tier{}
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

// Create adds a new tier.
// POST /api/v1/admin/tiers
func (h *TiersHandler) Create(c *gin.Context) {
	var req createTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier definition"})
		return
	}

	tier, err := h.store.CreateTier(c.Request.Context(), &models.Tier{
		Name:              req.Name,
		Description:       req.Description,
		MaxVariables:      req.MaxVariables,
		MaxVariableSizeMB: req.MaxVariableSizeMB,
		MaxRequestsPerDay: req.MaxRequestsPerDay,
		MaxAPIKeys:        req.MaxAPIKeys,
		PriceMonthly:      req.PriceMonthly,
		IsActive:          true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().Str("tier_id", tier.ID.String()).Str("name", tier.Name).Msg("tier created")
	c.JSON(http.StatusCreated, tier)
}

// Get returns a tier by ID.
// GET /api/v1/admin/tiers/:id
func (h *TiersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier ID"})
		return
	}

	tier, err := h.store.GetTierByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tier)
}

// Update applies a partial update to a tier. Limit changes take effect
// on the next request each affected user makes; existing over-limit
// resources are kept but block further creation.
// PATCH /api/v1/admin/tiers/:id
func (h *TiersHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier ID"})
		return
	}

	var req updateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tier, err := h.store.UpdateTier(c.Request.Context(), id, db.TierUpdate{
		Name:              req.Name,
		Description:       req.Description,
		MaxVariables:      req.MaxVariables,
		MaxVariableSizeMB: req.MaxVariableSizeMB,
		MaxRequestsPerDay: req.MaxRequestsPerDay,
		MaxAPIKeys:        req.MaxAPIKeys,
		PriceMonthly:      req.PriceMonthly,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().Str("tier_id", tier.ID.String()).Msg("tier updated")
	c.JSON(http.StatusOK, tier)
}

// Delete removes a tier that no user is assigned to.
// DELETE /api/v1/admin/tiers/:id
func (h *TiersHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier ID"})
		return
	}

	if err := h.store.DeleteTier(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tier deleted"})
}
