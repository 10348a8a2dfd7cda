// server/internal/api/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"recycle-pickup-api-server/internal/auth"
	"recycle-pickup-api-server/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// Context keys set by Authenticate.
const (
	KeyUserID      = "user_id"
	KeyUserRole    = "user_role"
	KeyCommunityID = "user_community_id"
	KeyActor       = "actor"
)

// Authenticate verifies the bearer token and stores the caller's identity in
// the request context.
func Authenticate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		actor, err := claims.Actor()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token carries an unknown role"})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserRole, claims.Role)
		c.Set(KeyCommunityID, claims.CommunityID)
		c.Set(KeyActor, actor)

		c.Next()
	}
}

// Authorize only lets through callers whose role is in allowedRoles.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(KeyUserRole)
		if userRole == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
			return
		}

		for _, role := range allowedRoles {
			if role == userRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}

// Actor returns the actor stored by Authenticate.
func Actor(c *gin.Context) (lifecycle.Actor, bool) {
	v, ok := c.Get(KeyActor)
	if !ok {
		return nil, false
	}
	actor, ok := v.(lifecycle.Actor)
	return actor, ok
}
