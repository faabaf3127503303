package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
)

const userColumns = `id, email, password_hash, role, tier_id, is_active, email_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.TierID,
		&u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. A duplicate email surfaces as Conflict.
func (db *DB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	created, err := scanUser(db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, tier_id, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns+`
	`, user.Email, user.PasswordHash, user.Role, user.TierID,
		user.IsActive, user.EmailVerified))
	if err != nil {
		return nil, classify(err, "user not found", "email already registered")
	}
	return created, nil
}

// GetUserByID returns a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "user not found", "")
	}
	return user, nil
}

// GetUserByEmail returns a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, classify(err, "user not found", "")
	}
	return user, nil
}

// ListUsers returns a page of users with an optional email substring
// search, plus the total count.
func (db *DB) ListUsers(ctx context.Context, page, pageSize int, search string) ([]*models.User, int64, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + userColumns + ` FROM users`
	countQuery := `SELECT COUNT(*) FROM users`
	args := []any{}
	if search != "" {
		query += ` WHERE email ILIKE '%' || $3 || '%'`
		countQuery += ` WHERE email ILIKE '%' || $1 || '%'`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args = append(args, pageSize, offset)
	if search != "" {
		args = append(args, search)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int64
	countArgs := []any{}
	if search != "" {
		countArgs = append(countArgs, search)
	}
	if err := db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// UpdateUserStatus activates or deactivates a user account.
func (db *DB) UpdateUserStatus(ctx context.Context, id uuid.UUID, isActive bool) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, isActive))
	if err != nil {
		return nil, classify(err, "user not found", "")
	}
	return user, nil
}

// UpdateUserEmailVerified sets the email verification flag.
func (db *DB) UpdateUserEmailVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users SET email_verified = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, verified))
	if err != nil {
		return nil, classify(err, "user not found", "")
	}
	return user, nil
}

// UpdateUserTier moves a user to a different tier.
func (db *DB) UpdateUserTier(ctx context.Context, id, tierID uuid.UUID) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, `
		UPDATE users SET tier_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, tierID))
	if err != nil {
		return nil, classify(err, "user not found", "")
	}
	return user, nil
}

// UpdateUserPassword replaces a user's password hash.
func (db *DB) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return classify(err, "user not found", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// DeleteUser removes a user. Variables, API keys and usage rows cascade.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return classify(err, "user not found", "")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}
