package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/maintenance"
)

// Sweeper runs an on-demand blob reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (*maintenance.SweepResult, error)
}

// MaintenanceHandler exposes admin maintenance operations.
type MaintenanceHandler struct {
	sweeper Sweeper
	logger  zerolog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler. sweeper may be
// nil when the configured storage backend cannot enumerate blobs.
func NewMaintenanceHandler(sweeper Sweeper, logger zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		sweeper: sweeper,
		logger:  logger.With().Str("component", "maintenance_handler").Logger(),
	}
}

// RegisterRoutes registers maintenance routes on the admin router group.
func (h *MaintenanceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/maintenance/reconcile", h.Reconcile)
}

// Reconcile triggers an immediate orphan blob sweep.
// POST /api/v1/admin/maintenance/reconcile
func (h *MaintenanceHandler) Reconcile(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "storage backend does not support reconciliation"})
		return
	}

	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
