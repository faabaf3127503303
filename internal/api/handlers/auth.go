package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/auth"
	"github.com/varhold/varhold/internal/models"
)

// AuthStore defines the interface for account persistence operations.
type AuthStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetDefaultTier(ctx context.Context) (*models.Tier, error)
}

// TokenIssuer mints JWTs for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string, role models.UserRole, tierID uuid.UUID) (string, error)
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	store  AuthStore
	tokens TokenIssuer
	logger zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, tokens TokenIssuer, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:  store,
		tokens: tokens,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given engine.
func (h *AuthHandler) RegisterRoutes(r *gin.Engine) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new account on the default tier.
//
//	@Summary		Register a new account
//	@Description	Creates a user on the default tier and returns a JWT
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	authResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		respondError(c, err)
		return
	}

	defaultTier, err := h.store.GetDefaultTier(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("no default tier available for registration")
		respondError(c, apperr.Wrap(apperr.KindUnavailable, "registration is temporarily unavailable", err))
		return
	}

	passwordHash, err := auth.HashSecret(req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("password hashing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), models.NewUser(req.Email, passwordHash, defaultTier.ID))
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email, user.Role, user.TierID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("token issuance failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

// Login authenticates an email and password and returns a JWT.
//
//	@Summary		Log in
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	authResponse
//	@Failure		401		{object}	map[string]string
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// The same response for unknown email and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if !auth.VerifySecret(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account is deactivated"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email, user.Role, user.TierID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("token issuance failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}
