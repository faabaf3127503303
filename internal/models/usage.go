package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageStats holds per-user per-day counters. One row per (user, date),
// upserted on every counted operation.
type UsageStats struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	Date                  time.Time `json:"date"`
	RequestsCount         int       `json:"requests_count"`
	VariablesCreated      int       `json:"variables_created"`
	VariablesUpdated      int       `json:"variables_updated"`
	VariablesDeleted      int       `json:"variables_deleted"`
	VariablesRead         int       `json:"variables_read"`
	TotalBytesStored      int64     `json:"total_bytes_stored"`
	TotalBytesTransferred int64     `json:"total_bytes_transferred"`
}

// UsageSummary aggregates usage over a period plus current resource counts.
type UsageSummary struct {
	UserID                uuid.UUID `json:"user_id"`
	PeriodStart           time.Time `json:"period_start"`
	PeriodEnd             time.Time `json:"period_end"`
	TotalRequests         int       `json:"total_requests"`
	TotalVariableOps      int       `json:"total_variable_ops"`
	TotalBytesStored      int64     `json:"total_bytes_stored"`
	TotalBytesTransferred int64     `json:"total_bytes_transferred"`
	CurrentVariables      int       `json:"current_variables"`
	CurrentAPIKeys        int       `json:"current_api_keys"`
}
