package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/models"
	"github.com/varhold/varhold/internal/vars"
)

// VariableService defines the variable store operations the handler
// exposes over HTTP.
type VariableService interface {
	Create(ctx context.Context, userID uuid.UUID, tier *models.Tier, in vars.CreateInput) (*vars.VariableWithData, error)
	Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*vars.VariableWithData, error)
	List(ctx context.Context, userID uuid.UUID, page, pageSize int, search string) ([]*models.Variable, int64, error)
	Update(ctx context.Context, userID uuid.UUID, tier *models.Tier, id uuid.UUID, in vars.UpdateInput) (*vars.VariableWithData, error)
	Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
}

// VariableResolver resolves a variable key to its metadata row.
type VariableResolver interface {
	GetVariableByKey(ctx context.Context, key string, userID uuid.UUID) (*models.Variable, error)
}

// VariablesHandler handles variable CRUD endpoints.
type VariablesHandler struct {
	service  VariableService
	resolver VariableResolver
	logger   zerolog.Logger
}

// NewVariablesHandler creates a new VariablesHandler.
func NewVariablesHandler(service VariableService, resolver VariableResolver, logger zerolog.Logger) *VariablesHandler {
	return &VariablesHandler{
		service:  service,
		resolver: resolver,
		logger:   logger.With().Str("component", "variables_handler").Logger(),
	}
}

// RegisterRoutes registers variable routes on the given router group.
func (h *VariablesHandler) RegisterRoutes(r *gin.RouterGroup) {
	variables := r.Group("/variables")
	{
		variables.GET("", h.List)
		variables.POST("", h.Create)
		variables.GET("/:id", h.Get)
		variables.PATCH("/:id", h.Update)
		variables.DELETE("/:id", h.Delete)
	}

	// Key-addressed read for callers that do not track IDs.
	r.GET("/variables/by-key/:key", h.GetByKey)
}

type createVariableRequest struct {
	Key         string          `json:"key" binding:"required"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data" binding:"required"`
	Tags        []string        `json:"tags"`
	IsEncrypted bool            `json:"is_encrypted"`
}

type updateVariableRequest struct {
	Description *string         `json:"description"`
	Data        json.RawMessage `json:"data"`
	Tags        []string        `json:"tags"`
}

// Create stores a new variable.
//
//	@Summary		Create a variable
//	@Tags			Variables
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createVariableRequest	true	"Variable"
//	@Success		201		{object}	vars.VariableWithData
//	@Failure		400		{object}	map[string]string
//	@Failure		402		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/api/v1/variables [post]
func (h *VariablesHandler) Create(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	var req createVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key and data are required"})
		return
	}

	created, err := h.service.Create(c.Request.Context(), identity.UserID, identity.Tier, vars.CreateInput{
		Key:         req.Key,
		Description: req.Description,
		Data:        req.Data,
		Tags:        req.Tags,
		IsEncrypted: req.IsEncrypted,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", identity.UserID.String()).
		Str("key", created.Key).
		Msg("variable created")
	c.JSON(http.StatusCreated, created)
}

// List returns the caller's variable metadata, paginated.
// GET /api/v1/variables
func (h *VariablesHandler) List(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")

	items, total, err := h.service.List(c.Request.Context(), identity.UserID, page, pageSize, search)
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.Variable{}
	}

	c.JSON(http.StatusOK, gin.H{
		"variables": items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns a variable and its document.
// GET /api/v1/variables/:id
func (h *VariablesHandler) Get(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variable ID"})
		return
	}

	variable, err := h.service.Get(c.Request.Context(), identity.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, variable)
}

// GetByKey returns a variable and its document addressed by key.
// GET /api/v1/variables/by-key/:key
func (h *VariablesHandler) GetByKey(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	row, err := h.resolver.GetVariableByKey(c.Request.Context(), c.Param("key"), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	variable, err := h.service.Get(c.Request.Context(), identity.UserID, row.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, variable)
}

// Update applies a partial update to a variable.
// PATCH /api/v1/variables/:id
func (h *VariablesHandler) Update(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variable ID"})
		return
	}

	var req updateVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), identity.UserID, identity.Tier, id, vars.UpdateInput{
		Description: req.Description,
		Data:        req.Data,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete removes a variable and its stored document.
// DELETE /api/v1/variables/:id
func (h *VariablesHandler) Delete(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variable ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), identity.UserID, id); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info().
		Str("user_id", identity.UserID.String()).
		Str("variable_id", id.String()).
		Msg("variable deleted")
	c.JSON(http.StatusOK, gin.H{"message": "variable deleted"})
}
