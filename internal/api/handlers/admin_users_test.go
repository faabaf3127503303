package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
)

type mockAdminUserStore struct {
	users map[uuid.UUID]*models.User
	tiers map[uuid.UUID]*models.Tier

	promotions   []*models.Promotion
	promotionErr error
	deleted      []uuid.UUID
}

func (m *mockAdminUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func (m *mockAdminUserStore) ListUsers(_ context.Context, _, _ int, _ string) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (m *mockAdminUserStore) UpdateUserStatus(_ context.Context, id uuid.UUID, isActive bool) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	u.IsActive = isActive
	return u, nil
}

func (m *mockAdminUserStore) UpdateUserTier(_ context.Context, id, tierID uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	u.TierID = tierID
	return u, nil
}

func (m *mockAdminUserStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAdminUserStore) GetTierByID(_ context.Context, id uuid.UUID) (*models.Tier, error) {
	tier, ok := m.tiers[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "tier not found")
	}
	return tier, nil
}

func (m *mockAdminUserStore) CreatePromotion(_ context.Context, userID, fromTierID, toTierID, promotedBy uuid.UUID, reason string) (*models.Promotion, error) {
	if m.promotionErr != nil {
		return nil, m.promotionErr
	}
	p := &models.Promotion{
		ID:         uuid.New(),
		UserID:     userID,
		FromTierID: fromTierID,
		ToTierID:   toTierID,
		PromotedBy: promotedBy,
		Reason:     reason,
	}
	m.promotions = append(m.promotions, p)
	return p, nil
}

func (m *mockAdminUserStore) ListPromotionsByUser(_ context.Context, userID uuid.UUID) ([]*models.Promotion, error) {
	var out []*models.Promotion
	for _, p := range m.promotions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockAdminUserStore) ListPromotions(_ context.Context, _, _ int) ([]*models.Promotion, int64, error) {
	return m.promotions, int64(len(m.promotions)), nil
}

func adminIdentity() *middleware.Identity {
	identity := testIdentity()
	identity.Role = models.UserRoleAdmin
	return identity
}

func adminFixtures() (*mockAdminUserStore, *models.User, *models.Tier, *models.Tier) {
	free := &models.Tier{ID: uuid.New(), Name: "Free"}
	pro := &models.Tier{ID: uuid.New(), Name: "Pro"}
	user := &models.User{
		ID:       uuid.New(),
		Email:    "bob@example.com",
		TierID:   free.ID,
		IsActive: true,
	}
	store := &mockAdminUserStore{
		users: map[uuid.UUID]*models.User{user.ID: user},
		tiers: map[uuid.UUID]*models.Tier{free.ID: free, pro.ID: pro},
	}
	return store, user, free, pro
}

func TestAdminPromote(t *testing.T) {
	store, user, free, pro := adminFixtures()
	admin := adminIdentity()
	r := newTestRouter(admin)
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "POST", "/api/v1/admin/users/"+user.ID.String()+"/promote",
		`{"tier_id":"`+pro.ID.String()+`","reason":"paid upgrade"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, pro.ID, user.TierID)
	require.Len(t, store.promotions, 1)
	p := store.promotions[0]
	assert.Equal(t, free.ID, p.FromTierID)
	assert.Equal(t, pro.ID, p.ToTierID)
	assert.Equal(t, admin.UserID, p.PromotedBy)
	assert.Equal(t, "paid upgrade", p.Reason)
}

func TestAdminPromoteUnknownTier(t *testing.T) {
	store, user, free, _ := adminFixtures()
	r := newTestRouter(adminIdentity())
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "POST", "/api/v1/admin/users/"+user.ID.String()+"/promote",
		`{"tier_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The user's tier is untouched and no audit row was written.
	assert.Equal(t, free.ID, user.TierID)
	assert.Empty(t, store.promotions)
}

func TestAdminPromoteAuditFailureDoesNotUnwind(t *testing.T) {
	store, user, _, pro := adminFixtures()
	store.promotionErr = apperr.New(apperr.KindUnavailable, "database error occurred")
	r := newTestRouter(adminIdentity())
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "POST", "/api/v1/admin/users/"+user.ID.String()+"/promote",
		`{"tier_id":"`+pro.ID.String()+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pro.ID, user.TierID)
}

func TestAdminSetStatus(t *testing.T) {
	store, user, _, _ := adminFixtures()
	r := newTestRouter(adminIdentity())
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "POST", "/api/v1/admin/users/"+user.ID.String()+"/status",
		`{"is_active":false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, user.IsActive)
}

func TestAdminDeleteSelfRejected(t *testing.T) {
	store, _, _, _ := adminFixtures()
	admin := adminIdentity()
	store.users[admin.UserID] = &models.User{ID: admin.UserID}
	r := newTestRouter(admin)
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "DELETE", "/api/v1/admin/users/"+admin.UserID.String(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.deleted)
}

func TestAdminDeleteUser(t *testing.T) {
	store, user, _, _ := adminFixtures()
	r := newTestRouter(adminIdentity())
	NewAdminUsersHandler(store, zerolog.Nop()).RegisterRoutes(r.Group("/api/v1/admin"))

	w := doRequest(r, "DELETE", "/api/v1/admin/users/"+user.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{user.ID}, store.deleted)
}
