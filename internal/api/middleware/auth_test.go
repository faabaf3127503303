package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/models"
)

type mockAuthStore struct {
	users    map[uuid.UUID]*models.User
	tiers    map[uuid.UUID]*models.Tier
	keys     []*models.APIKey
	touched  []uuid.UUID
	touchErr error
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func (m *mockAuthStore) GetTierByID(ctx context.Context, id uuid.UUID) (*models.Tier, error) {
	tier, ok := m.tiers[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "tier not found")
	}
	return tier, nil
}

func (m *mockAuthStore) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.Prefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockAuthStore) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	m.touched = append(m.touched, id)
	return m.touchErr
}

func testFixtures(t *testing.T) (*mockAuthStore, *auth.TokenIssuer, *models.User) {
	t.Helper()

	tier := &models.Tier{ID: uuid.New(), Name: "Free", MaxRequestsPerDay: 1000}
	user := &models.User{
		ID:       uuid.New(),
		Email:    "alice@example.com",
		Role:     models.UserRoleUser,
		TierID:   tier.ID,
		IsActive: true,
	}

	store := &mockAuthStore{
		users: map[uuid.UUID]*models.User{user.ID: user},
		tiers: map[uuid.UUID]*models.Tier{tier.ID: tier},
	}

	tokens, err := auth.NewTokenIssuer("test-secret-at-least-16-bytes", time.Hour)
	require.NoError(t, err)
	return store, tokens, user
}

func authRouter(store *mockAuthStore, tokens *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(store, tokens, zerolog.Nop()))
	r.GET("/whoami", func(c *gin.Context) {
		identity := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "tier": identity.Tier.Name})
	})
	return r
}

func doGet(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	store, tokens, _ := testFixtures(t)
	w := doGet(authRouter(store, tokens), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidJWT(t *testing.T) {
	store, tokens, user := testFixtures(t)

	token, err := tokens.Issue(user.ID, user.Email, user.Role, user.TierID)
	require.NoError(t, err)

	w := doGet(authRouter(store, tokens), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
	assert.Contains(t, w.Body.String(), "Free")
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	store, tokens, _ := testFixtures(t)
	w := doGet(authRouter(store, tokens), "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InactiveUser(t *testing.T) {
	store, tokens, user := testFixtures(t)
	user.IsActive = false

	token, err := tokens.Issue(user.ID, user.Email, user.Role, user.TierID)
	require.NoError(t, err)

	w := doGet(authRouter(store, tokens), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_APIKey(t *testing.T) {
	store, tokens, user := testFixtures(t)

	secret, prefix, err := auth.GenerateAPIKey()
	require.NoError(t, err)
	hash, err := auth.HashSecret(secret)
	require.NoError(t, err)

	key := &models.APIKey{
		ID:       uuid.New(),
		UserID:   user.ID,
		Prefix:   prefix,
		KeyHash:  hash,
		IsActive: true,
	}
	store.keys = append(store.keys, key)

	w := doGet(authRouter(store, tokens), "Bearer "+secret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{key.ID}, store.touched)
}

func TestAuthMiddleware_RevokedAPIKey(t *testing.T) {
	store, tokens, user := testFixtures(t)

	secret, prefix, err := auth.GenerateAPIKey()
	require.NoError(t, err)
	hash, err := auth.HashSecret(secret)
	require.NoError(t, err)

	store.keys = append(store.keys, &models.APIKey{
		ID:       uuid.New(),
		UserID:   user.ID,
		Prefix:   prefix,
		KeyHash:  hash,
		IsActive: false,
	})

	w := doGet(authRouter(store, tokens), "Bearer "+secret)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, store.touched)
}

func TestAuthMiddleware_ExpiredAPIKey(t *testing.T) {
	store, tokens, user := testFixtures(t)

	secret, prefix, err := auth.GenerateAPIKey()
	require.NoError(t, err)
	hash, err := auth.HashSecret(secret)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	store.keys = append(store.keys, &models.APIKey{
		ID:        uuid.New(),
		UserID:    user.ID,
		Prefix:    prefix,
		KeyHash:   hash,
		IsActive:  true,
		ExpiresAt: &past,
	})

	w := doGet(authRouter(store, tokens), "Bearer "+secret)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_UnknownAPIKey(t *testing.T) {
	store, tokens, _ := testFixtures(t)

	secret, _, err := auth.GenerateAPIKey()
	require.NoError(t, err)

	w := doGet(authRouter(store, tokens), "Bearer "+secret)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(identity *Identity) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if identity != nil {
				c.Set(string(IdentityContextKey), identity)
			}
		})
		r.Use(RequireAdmin())
		r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	newRouter(&Identity{Role: models.UserRoleAdmin}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newRouter(&Identity{Role: models.UserRoleUser}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	newRouter(nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
