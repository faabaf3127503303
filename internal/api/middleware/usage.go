package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/db"
	"github.com/varhold/varhold/internal/quota"
)

// UsageStore is the slice of the database the daily quota middleware
// needs.
type UsageStore interface {
	GetRequestsToday(ctx context.Context, userID uuid.UUID) (int, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, delta db.UsageDelta) error
}

// DailyQuota enforces the per-tier request-per-day limit and meters each
// request that passes. Must run after AuthMiddleware.
//
// The check and increment are not atomic: concurrent requests near the
// boundary can momentarily overshoot the limit.
func DailyQuota(store UsageStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "daily_quota").Logger()

	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		requestsToday, err := store.GetRequestsToday(c.Request.Context(), identity.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", identity.UserID.String()).Msg("usage lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			return
		}

		if !quota.WithinRateLimit(requestsToday, identity.Tier) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "daily request limit exceeded",
				"limit": identity.Tier.MaxRequestsPerDay,
			})
			return
		}

		if err := store.IncrementUsage(c.Request.Context(), identity.UserID, db.UsageDelta{Requests: 1}); err != nil {
			// Metering failure never blocks the request.
			log.Warn().Err(err).Str("user_id", identity.UserID.String()).Msg("usage increment failed")
		}

		c.Next()
	}
}
