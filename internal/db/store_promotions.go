package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/models"
)

const promotionColumns = `id, user_id, from_tier_id, to_tier_id, promoted_by, reason, created_at`

func scanPromotion(row interface{ Scan(...any) error }) (*models.Promotion, error) {
	var p models.Promotion
	err := row.Scan(&p.ID, &p.UserID, &p.FromTierID, &p.ToTierID, &p.PromotedBy, &p.Reason, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePromotion appends a tier-change audit record. Promotions are
// never updated or deleted.
func (db *DB) CreatePromotion(ctx context.Context, userID, fromTierID, toTierID, promotedBy uuid.UUID, reason string) (*models.Promotion, error) {
	p, err := scanPromotion(db.Pool.QueryRow(ctx, `
		INSERT INTO promotions (user_id, from_tier_id, to_tier_id, promoted_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+promotionColumns,
		userID, fromTierID, toTierID, promotedBy, reason))
	if err != nil {
		return nil, classify(err, "promotion not found", "")
	}
	return p, nil
}

// ListPromotionsByUser returns a user's promotion history, newest first.
func (db *DB) ListPromotionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Promotion, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promotions []*models.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

// ListPromotions returns a page of all promotion records, newest first,
// plus the total count.
func (db *DB) ListPromotions(ctx context.Context, page, pageSize int) ([]*models.Promotion, int64, error) {
	offset := (page - 1) * pageSize

	rows, err := db.Pool.Query(ctx,
		`SELECT `+promotionColumns+` FROM promotions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promotions []*models.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}

	var total int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM promotions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	return promotions, total, nil
}
