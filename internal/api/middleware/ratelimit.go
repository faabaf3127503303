package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	libredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRateLimiter creates a Gin middleware for per-client rate limiting.
// requests is the number of requests allowed per period; period is a
// duration string (e.g., "1m", "1h").
//
// With an empty redisURL the counters live in process memory, which is
// fine for a single instance. Set redisURL to share counters across
// replicas.
func NewRateLimiter(requests int64, period string, redisURL string) (gin.HandlerFunc, error) {
	duration, err := time.ParseDuration(period)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit period %q: %w", period, err)
	}

	rate := limiter.Rate{
		Period: duration,
		Limit:  requests,
	}

	var store limiter.Store
	if redisURL != "" {
		opts, err := libredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		store, err = sredis.NewStoreWithOptions(libredis.NewClient(opts), limiter.StoreOptions{
			Prefix: "varhold:ratelimit",
		})
		if err != nil {
			return nil, fmt.Errorf("redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance), nil
}
