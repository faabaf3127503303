package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/api/middleware"
	"github.com/varhold/varhold/internal/models"
)

// testIdentity returns a fixed identity on a Free-like tier.
func testIdentity() *middleware.Identity {
	return &middleware.Identity{
		UserID: uuid.New(),
		Email:  "alice@example.com",
		Role:   models.UserRoleUser,
		Tier: &models.Tier{
			ID:                uuid.New(),
			Name:              "Free",
			MaxVariables:      50,
			MaxVariableSizeMB: 1,
			MaxRequestsPerDay: 1000,
			MaxAPIKeys:        2,
			IsActive:          true,
		},
	}
}

// newTestRouter returns a Gin engine that injects identity before every
// handler, mimicking the auth middleware.
func newTestRouter(identity *middleware.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if identity != nil {
			c.Set(string(middleware.IdentityContextKey), identity)
		}
		c.Next()
	})
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}
