package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/models"
)

// UsageStatsStore defines the interface for usage reporting queries.
type UsageStatsStore interface {
	GetUsageRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.UsageStats, error)
	GetRequestsToday(ctx context.Context, userID uuid.UUID) (int, error)
	CountVariablesByUser(ctx context.Context, userID uuid.UUID) (int, error)
	CountActiveAPIKeysByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// UsageHandler handles usage reporting endpoints.
type UsageHandler struct {
	store  UsageStatsStore
	logger zerolog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(store UsageStatsStore, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{
		store:  store,
		logger: logger.With().Str("component", "usage_handler").Logger(),
	}
}

// RegisterRoutes registers usage routes on the given router group.
func (h *UsageHandler) RegisterRoutes(r *gin.RouterGroup) {
	usage := r.Group("/usage")
	{
		usage.GET("", h.Summary)
		usage.GET("/daily", h.Daily)
	}
}

// Summary returns aggregate usage over the requested number of days
// plus current resource counts.
// GET /api/v1/usage?days=30
func (h *UsageHandler) Summary(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	rows, err := h.store.GetUsageRange(c.Request.Context(), identity.UserID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := models.UsageSummary{
		UserID:      identity.UserID,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	for _, row := range rows {
		summary.TotalRequests += row.RequestsCount
		summary.TotalVariableOps += row.VariablesCreated + row.VariablesUpdated +
			row.VariablesDeleted + row.VariablesRead
		summary.TotalBytesStored += row.TotalBytesStored
		summary.TotalBytesTransferred += row.TotalBytesTransferred
	}

	if summary.CurrentVariables, err = h.store.CountVariablesByUser(c.Request.Context(), identity.UserID); err != nil {
		respondError(c, err)
		return
	}
	if summary.CurrentAPIKeys, err = h.store.CountActiveAPIKeysByUser(c.Request.Context(), identity.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Daily returns per-day usage rows for the requested window along with
// today's request count against the tier limit.
// GET /api/v1/usage/daily?days=7
func (h *UsageHandler) Daily(c *gin.Context) {
	identity := middleware.RequireIdentity(c)
	if identity == nil {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	rows, err := h.store.GetUsageRange(c.Request.Context(), identity.UserID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []*models.UsageStats{}
	}

	requestsToday, err := h.store.GetRequestsToday(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":           rows,
		"requests_today": requestsToday,
		"daily_limit":    identity.Tier.MaxRequestsPerDay,
	})
}
