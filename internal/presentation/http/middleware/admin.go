// Package middleware provides gin middleware for the content API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminCookieName carries the admin token for browser clients.
const AdminCookieName = "admin_auth"

// TokenValidator reports whether a bearer token grants admin access.
type TokenValidator interface {
	ValidateAdminToken(token string) bool
}

// AdminToken extracts the admin token from the Authorization header or the
// admin cookie.
func AdminToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if cookie, err := c.Cookie(AdminCookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireAdmin rejects requests without a valid admin token.
func RequireAdmin(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AdminToken(c)
		if token == "" || !validator.ValidateAdminToken(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin authentication required"})
			return
		}
		c.Set("isAdmin", true)
		c.Next()
	}
}
