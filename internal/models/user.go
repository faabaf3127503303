package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole defines the role of a registered user.
type UserRole string

const (
	// UserRoleUser has standard access to their own variables and API keys.
	UserRoleUser UserRole = "user"
	// UserRoleAdmin can manage users, tiers and promotions.
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User represents a registered account owning variables and API keys.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          UserRole  `json:"role"`
	TierID        uuid.UUID `json:"tier_id"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUser creates a new active User on the given tier.
func NewUser(email, passwordHash string, tierID uuid.UUID) *User {
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         UserRoleUser,
		TierID:       tierID,
		IsActive:     true,
	}
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
