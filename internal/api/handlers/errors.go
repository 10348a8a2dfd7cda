package handlers

import (
	"net/http"

	"recycle-pickup-api-server/internal/api/middleware"
	"recycle-pickup-api-server/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// statusFor maps an engine error kind onto an HTTP status.
func statusFor(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.ValidationFailure:
		return http.StatusBadRequest
	case lifecycle.Unauthorized:
		return http.StatusForbidden
	case lifecycle.NotFound:
		return http.StatusNotFound
	case lifecycle.Conflict, lifecycle.InvalidState, lifecycle.BudgetExhausted:
		return http.StatusConflict
	case lifecycle.InvalidTransition:
		return http.StatusUnprocessableEntity
	case lifecycle.PersistenceTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := lifecycle.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error", "kind": kind.String()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}

// actorOrAbort returns the authenticated actor or writes 401.
func actorOrAbort(c *gin.Context) (lifecycle.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return actor, ok
}
