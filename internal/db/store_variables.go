package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/models"
)

const variableColumns = `id, user_id, key, description, size_bytes, version, storage_path, is_encrypted, COALESCE(tags, '[]'::jsonb), created_at, updated_at`

func scanVariable(row interface{ Scan(...any) error }) (*models.Variable, error) {
	var v models.Variable
	err := row.Scan(&v.ID, &v.UserID, &v.Key, &v.Description, &v.SizeBytes, &v.Version,
		&v.StoragePath, &v.IsEncrypted, &v.Tags, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVariable inserts a ledger row at version 1. The (user_id, key)
// unique constraint is the final authority on duplicate keys; a
// violation surfaces as Conflict.
func (db *DB) CreateVariable(ctx context.Context, v *models.Variable) (*models.Variable, error) {
	created, err := scanVariable(db.Pool.QueryRow(ctx, `
		INSERT INTO variables (user_id, key, description, size_bytes, storage_path, is_encrypted, tags, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING `+variableColumns,
		v.UserID, v.Key, v.Description, v.SizeBytes, v.StoragePath, v.IsEncrypted, v.Tags))
	if err != nil {
		return nil, classify(err, "variable not found", "variable key already exists")
	}
	return created, nil
}

// GetVariableByID returns a variable scoped to its owner. A row owned by
// a different user is indistinguishable from a missing one.
func (db *DB) GetVariableByID(ctx context.Context, id, userID uuid.UUID) (*models.Variable, error) {
	v, err := scanVariable(db.Pool.QueryRow(ctx,
		`SELECT `+variableColumns+` FROM variables WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, classify(err, "variable not found", "")
	}
	return v, nil
}

// GetVariableByKey returns a variable by its key, scoped to its owner.
func (db *DB) GetVariableByKey(ctx context.Context, key string, userID uuid.UUID) (*models.Variable, error) {
	v, err := scanVariable(db.Pool.QueryRow(ctx,
		`SELECT `+variableColumns+` FROM variables WHERE key = $1 AND user_id = $2`, key, userID))
	if err != nil {
		return nil, classify(err, "variable not found", "")
	}
	return v, nil
}

// ListVariables returns a page of the user's variables with an optional
// key substring search, plus the total count for the user.
func (db *DB) ListVariables(ctx context.Context, userID uuid.UUID, page, pageSize int, search string) ([]*models.Variable, int64, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + variableColumns + ` FROM variables WHERE user_id = $1`
	args := []any{userID, pageSize, offset}
	if search != "" {
		query += ` AND key ILIKE '%' || $4 || '%'`
		args = append(args, search)
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()

	var variables []*models.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan variable: %w", err)
		}
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list variables: %w", err)
	}

	var total int64
	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM variables WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count variables: %w", err)
	}

	return variables, total, nil
}

// CountVariablesByUser returns the user's current variable count.
func (db *DB) CountVariablesByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM variables WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count variables: %w", err)
	}
	return count, nil
}

// UpdateVariable applies a partial update to a variable, scoped to its
// owner. Nil fields are left unchanged; the version increments on every
// update regardless of which fields changed.
func (db *DB) UpdateVariable(ctx context.Context, id, userID uuid.UUID, description *string, sizeBytes *int64, tagList []string) (*models.Variable, error) {
	var tags any
	if tagList != nil {
		tags = tagList
	}
	v, err := scanVariable(db.Pool.QueryRow(ctx, `
		UPDATE variables SET
			description = COALESCE($3, description),
			size_bytes = COALESCE($4, size_bytes),
			tags = COALESCE($5, tags),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+variableColumns,
		id, userID, description, sizeBytes, tags))
	if err != nil {
		return nil, classify(err, "variable not found", "")
	}
	return v, nil
}

// DeleteVariable removes the ledger row and returns it so the caller can
// recover the storage path for blob cleanup.
func (db *DB) DeleteVariable(ctx context.Context, id, userID uuid.UUID) (*models.Variable, error) {
	v, err := scanVariable(db.Pool.QueryRow(ctx, `
		DELETE FROM variables WHERE id = $1 AND user_id = $2
		RETURNING `+variableColumns, id, userID))
	if err != nil {
		return nil, classify(err, "variable not found", "")
	}
	return v, nil
}

// ListStoragePaths returns every storage path referenced by the ledger.
// The reconciliation sweep uses it to identify orphaned blobs.
func (db *DB) ListStoragePaths(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT storage_path FROM variables`)
	if err != nil {
		return nil, fmt.Errorf("list storage paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan storage path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
