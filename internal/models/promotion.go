package models

import (
	"time"

	"github.com/google/uuid"
)

// Promotion is an append-only audit record of a tier change.
// Rows are never updated or deleted.
type Promotion struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	FromTierID uuid.UUID `json:"from_tier_id"`
	ToTierID   uuid.UUID `json:"to_tier_id"`
	PromotedBy uuid.UUID `json:"promoted_by"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
