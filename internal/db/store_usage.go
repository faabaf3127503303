package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/models"
)

// UsageDelta is a set of counter increments applied to today's usage row.
type UsageDelta struct {
	Requests         int
	VariablesCreated int
	VariablesUpdated int
	VariablesDeleted int
	VariablesRead    int
	BytesStored      int64
	BytesTransferred int64
}

// IncrementUsage upserts today's usage row for the user and adds the
// delta. There is no scheduled rollover: the first increment of a new
// day creates the new row.
func (db *DB) IncrementUsage(ctx context.Context, userID uuid.UUID, delta UsageDelta) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO usage_stats (user_id, date, requests_count, variables_created,
		                         variables_updated, variables_deleted, variables_read,
		                         total_bytes_stored, total_bytes_transferred)
		VALUES ($1, CURRENT_DATE, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, date) DO UPDATE SET
			requests_count = usage_stats.requests_count + EXCLUDED.requests_count,
			variables_created = usage_stats.variables_created + EXCLUDED.variables_created,
			variables_updated = usage_stats.variables_updated + EXCLUDED.variables_updated,
			variables_deleted = usage_stats.variables_deleted + EXCLUDED.variables_deleted,
			variables_read = usage_stats.variables_read + EXCLUDED.variables_read,
			total_bytes_stored = usage_stats.total_bytes_stored + EXCLUDED.total_bytes_stored,
			total_bytes_transferred = usage_stats.total_bytes_transferred + EXCLUDED.total_bytes_transferred
	`, userID, delta.Requests, delta.VariablesCreated, delta.VariablesUpdated,
		delta.VariablesDeleted, delta.VariablesRead, delta.BytesStored, delta.BytesTransferred)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// GetRequestsToday returns the user's request count for the current day.
// A missing row means zero requests.
func (db *DB) GetRequestsToday(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT requests_count FROM usage_stats WHERE user_id = $1 AND date = CURRENT_DATE), 0)
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get requests today: %w", err)
	}
	return count, nil
}

// GetUsageRange returns the user's usage rows within [start, end], newest first.
func (db *DB) GetUsageRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*models.UsageStats, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, date, requests_count, variables_created, variables_updated,
		       variables_deleted, variables_read, total_bytes_stored, total_bytes_transferred
		FROM usage_stats
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get usage range: %w", err)
	}
	defer rows.Close()

	var stats []*models.UsageStats
	for rows.Next() {
		var s models.UsageStats
		err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.RequestsCount, &s.VariablesCreated,
			&s.VariablesUpdated, &s.VariablesDeleted, &s.VariablesRead,
			&s.TotalBytesStored, &s.TotalBytesTransferred)
		if err != nil {
			return nil, fmt.Errorf("scan usage stats: %w", err)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}
