package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a named bundle of resource limits and a monthly price.
// Exactly one active tier with PriceMonthly == 0 acts as the default
// assigned at registration.
type Tier struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	MaxVariables      int       `json:"max_variables"`
	MaxVariableSizeMB int       `json:"max_variable_size_mb"`
	MaxRequestsPerDay int       `json:"max_requests_per_day"`
	MaxAPIKeys        int       `json:"max_api_keys"`
	PriceMonthly      int       `json:"price_monthly"` // cents
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MaxVariableSizeBytes returns the per-variable size limit in bytes.
func (t *Tier) MaxVariableSizeBytes() int64 {
	return int64(t.MaxVariableSizeMB) * 1024 * 1024
}

// IsDefault returns true if this tier is the implicit registration tier.
func (t *Tier) IsDefault() bool {
	return t.IsActive && t.PriceMonthly == 0
}
