package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserContextKey is where the authenticated user ID is stored in the context.
const UserContextKey = "userID"

// AuthMiddleware trusts the user identity forwarded by the API gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserContextKey, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from the context.
func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}
