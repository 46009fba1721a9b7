// README: Bearer auth against the stored session token.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"valetlink/internal/credstore"
)

// Auth requires the caller to present the same session token this process
// uses upstream. Local consumers read it from the shared credential store.
func Auth(creds credstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		want, err := creds.Read(c.Request.Context(), credstore.KeySessionToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}
		if strings.TrimPrefix(header, "Bearer ") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
