package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fulfillment-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/protected", middleware.AuthMiddleware(), func(c *gin.Context) {
		id, err := middleware.GetUserID(c)
		assert.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("forwarded identity accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-User-ID", "user-42")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-42")
	})
}

func TestInternalAuthMiddleware(t *testing.T) {
	const secret = "shared-secret"
	r := gin.New()
	r.POST("/internal", middleware.InternalAuthMiddleware(secret), okHandler)

	t.Run("missing token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		req.Header.Set("X-Internal-Token", "nope")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("correct token accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		req.Header.Set("X-Internal-Token", secret)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestInternalAuthMiddleware_EmptySecretDeniesAll(t *testing.T) {
	r := gin.New()
	r.POST("/internal", middleware.InternalAuthMiddleware(""), okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set("X-Internal-Token", "")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
