package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
)

const tierColumns = `id, name, description, max_variables, max_variable_size_mb, max_requests_per_day, max_api_keys, price_monthly, is_active, created_at, updated_at`

func scanTier(row interface{ Scan(...any) error }) (*models.Tier, error) {
	var t models.Tier
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.MaxVariables, &t.MaxVariableSizeMB,
		&t.MaxRequestsPerDay, &t.MaxAPIKeys, &t.PriceMonthly, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTier inserts a new tier. A duplicate name surfaces as Conflict.
func (db *DB) CreateTier(ctx context.Context, tier *models.Tier) (*models.Tier, error) {
	created, err := scanTier(db.Pool.QueryRow(ctx, `
		INSERT INTO tiers (name, description, max_variables, max_variable_size_mb,
		                   max_requests_per_day, max_api_keys, price_monthly, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+tierColumns,
		tier.Name, tier.Description, tier.MaxVariables, tier.MaxVariableSizeMB,
		tier.MaxRequestsPerDay, tier.MaxAPIKeys, tier.PriceMonthly, tier.IsActive))
	if err != nil {
		return nil, classify(err, "tier not found", "tier name already exists")
	}
	return created, nil
}

// GetTierByID returns a tier by ID.
func (db *DB) GetTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error) {
	tier, err := scanTier(db.Pool.QueryRow(ctx,
		`SELECT `+tierColumns+` FROM tiers WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "tier not found", "")
	}
	return tier, nil
}

// GetTierByName returns a tier by its unique name.
func (db *DB) GetTierByName(ctx context.Context, name string) (*models.Tier, error) {
	tier, err := scanTier(db.Pool.QueryRow(ctx,
		`SELECT `+tierColumns+` FROM tiers WHERE name = $1`, name))
	if err != nil {
		return nil, classify(err, "tier not found", "")
	}
	return tier, nil
}

// GetDefaultTier returns the active zero-price tier assigned at registration.
func (db *DB) GetDefaultTier(ctx context.Context) (*models.Tier, error) {
	tier, err := scanTier(db.Pool.QueryRow(ctx, `
		SELECT `+tierColumns+` FROM tiers
		WHERE is_active = TRUE AND price_monthly = 0
		ORDER BY created_at ASC
		LIMIT 1`))
	if err != nil {
		return nil, classify(err, "no default tier available", "")
	}
	return tier, nil
}

// ListTiers returns all tiers ordered by price, optionally only active ones.
func (db *DB) ListTiers(ctx context.Context, activeOnly bool) ([]*models.Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM tiers`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price_monthly ASC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*models.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// TierUpdate holds the optional fields of a tier update; nil fields are
// left unchanged.
type TierUpdate struct {
	Name              *string
	Description       *string
	MaxVariables      *int
	MaxVariableSizeMB *int
	MaxRequestsPerDay *int
	MaxAPIKeys        *int
	PriceMonthly      *int
	IsActive          *bool
}

// UpdateTier applies a partial update to a tier.
func (db *DB) UpdateTier(ctx context.Context, id uuid.UUID, upd TierUpdate) (*models.Tier, error) {
	tier, err := scanTier(db.Pool.QueryRow(ctx, `
		UPDATE tiers SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			max_variables = COALESCE($4, max_variables),
			max_variable_size_mb = COALESCE($5, max_variable_size_mb),
			max_requests_per_day = COALESCE($6, max_requests_per_day),
			max_api_keys = COALESCE($7, max_api_keys),
			price_monthly = COALESCE($8, price_monthly),
			is_active = COALESCE($9, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+tierColumns,
		id, upd.Name, upd.Description, upd.MaxVariables, upd.MaxVariableSizeMB,
		upd.MaxRequestsPerDay, upd.MaxAPIKeys, upd.PriceMonthly, upd.IsActive))
	if err != nil {
		return nil, classify(err, "tier not found", "tier name already exists")
	}
	return tier, nil
}

// DeleteTier removes a tier. A tier still referenced by users surfaces
// as Conflict.
func (db *DB) DeleteTier(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.KindConflict, "tier is still assigned to users")
		}
		return classify(err, "tier not found", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "tier not found")
	}
	return nil
}
