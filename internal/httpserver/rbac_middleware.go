package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freelanceos/pkg/rbac"
)

// RequirePermission rejects callers whose role lacks permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}
		r, _ := role.(string)
		if err := rbac.CheckPermission(r, permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// RequireEntityPermission derives the permission from the :type path param
// and the method: GET reads, everything else writes.
func RequireEntityPermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		write := c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead
		RequirePermission(rbac.EntityPermission(c.Param("type"), write))(c)
	}
}

// RequireRole rejects callers whose role is not role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r, _ := c.Get("role"); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "requires role " + role})
			return
		}
		c.Next()
	}
}
