package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefhub-api/models"
	"reliefhub-api/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID), "role": c.GetString(ContextRole)})
}

func perform(r http.Handler, method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := services.NewTokenManager("secret", time.Hour)
	token, err := tokens.Generate(&models.User{ID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(tokens), whoAmI)

	w := perform(r, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "bearer " + token}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestOptionalAuth(t *testing.T) {
	tokens := services.NewTokenManager("secret", time.Hour)
	token, err := tokens.Generate(&models.User{ID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/posts", OptionalAuth(tokens), whoAmI)

	w := perform(r, http.MethodGet, "/posts", map[string]string{"Authorization": "Bearer garbage"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	w = perform(r, http.MethodGet, "/posts", map[string]string{"Authorization": "Bearer " + token}, "")
	assert.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestAdminOnly(t *testing.T) {
	tokens := services.NewTokenManager("secret", time.Hour)
	userToken, err := tokens.Generate(&models.User{ID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, err := tokens.Generate(&models.User{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", AuthMiddleware(tokens), AdminOnly(), whoAmI)

	w := perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + userToken}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + adminToken}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(60, 2)
	r := gin.New()
	r.POST("/donate", limiter.Middleware(60), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 2; i++ {
		w := perform(r, http.MethodPost, "/donate", nil, "")
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	w := perform(r, http.MethodPost, "/donate", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	assert.Zero(t, limiter.Cleanup(time.Hour))
	assert.Equal(t, 1, limiter.Cleanup(-time.Second))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDHeader)) })

	w := perform(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"}, "")
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = perform(r, http.MethodGet, "/", nil, "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestValidateJSON(t *testing.T) {
	r := gin.New()
	r.Use(ValidateJSON())
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.POST("/posts", ok)
	r.POST("/posts/:id/images", ok)

	w := perform(r, http.MethodPost, "/posts", map[string]string{"Content-Type": "text/plain"}, "hello")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = perform(r, http.MethodPost, "/posts", map[string]string{"Content-Type": "application/json; charset=utf-8"}, "{}")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodPost, "/posts/p1/images", map[string]string{"Content-Type": "multipart/form-data; boundary=x"}, "--x--")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://relief.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", map[string]string{"Origin": "https://relief.example"}, "")
	assert.Equal(t, "https://relief.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"}, "")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodOptions, "/", map[string]string{"Origin": "https://relief.example"}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := perform(r, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An unexpected error occurred")
}
