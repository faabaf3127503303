package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/varhold/varhold/internal/config"
)

func corsRouter(origins []string, env config.Environment) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins, env, zerolog.Nop()))
	r.GET("/op", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doCORSGet(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/op", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_AllowedOrigin(t *testing.T) {
	r := corsRouter([]string{"https://app.example.com"}, config.EnvProduction)
	w := doCORSGet(r, "https://app.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	r := corsRouter([]string{"https://app.example.com"}, config.EnvProduction)
	w := doCORSGet(r, "https://evil.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EmptyOriginsAllowsAllInDev(t *testing.T) {
	r := corsRouter(nil, config.EnvDevelopment)
	w := doCORSGet(r, "https://anywhere.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://anywhere.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EmptyOriginsPanicsInProduction(t *testing.T) {
	assert.Panics(t, func() {
		CORS(nil, config.EnvProduction, zerolog.Nop())
	})
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	r := corsRouter([]string{"https://app.example.com"}, config.EnvProduction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/op", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
