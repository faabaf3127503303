package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
)

const apiKeyColumns = `id, user_id, name, key_hash, prefix, last_used_at, expires_at, is_active, created_at`

func scanAPIKey(row interface{ Scan(...any) error }) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.Prefix,
		&k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey inserts a new API key record.
func (db *DB) CreateAPIKey(ctx context.Context, userID uuid.UUID, name, keyHash, prefix string, expiresAt *time.Time) (*models.APIKey, error) {
	key, err := scanAPIKey(db.Pool.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, name, key_hash, prefix, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+apiKeyColumns,
		userID, name, keyHash, prefix, expiresAt))
	if err != nil {
		return nil, classify(err, "API key not found", "")
	}
	return key, nil
}

// GetAPIKeysByPrefix returns all keys sharing a lookup prefix. The prefix
// is an index, not an identifier: the caller still verifies the full
// secret against each candidate's hash.
func (db *DB) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1`, prefix)
	if err != nil {
		return nil, fmt.Errorf("find api keys by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ListAPIKeysByUser returns all of a user's API keys, newest first.
func (db *DB) ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CountActiveAPIKeysByUser returns the user's active key count for the
// quota check.
func (db *DB) CountActiveAPIKeysByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND is_active = TRUE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

// TouchAPIKey records that a key was just used.
func (db *DB) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// RevokeAPIKey deactivates a key, scoped to its owner.
func (db *DB) RevokeAPIKey(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return classify(err, "API key not found", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "API key not found")
	}
	return nil
}

// DeleteAPIKey removes a key, scoped to its owner.
func (db *DB) DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return classify(err, "API key not found", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "API key not found")
	}
	return nil
}
