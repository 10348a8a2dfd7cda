package handlers

import (
	"net/http"

	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type ImpactHandler struct {
	Engine *engine.Engine
}

// ImpactResponse is a user's totals with the awarded badges resolved against
// the catalogue.
type ImpactResponse struct {
	models.UserImpactMetrics
	BadgeDetails []models.Badge `json:"badgeDetails"`
}

func (h *ImpactHandler) GetMyImpact(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	h.respondImpact(c, actor.ActorID())
}

func (h *ImpactHandler) GetUserImpact(c *gin.Context) {
	h.respondImpact(c, c.Param("id"))
}

func (h *ImpactHandler) respondImpact(c *gin.Context, userID string) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	m, err := h.Engine.Metrics(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	catalog := make(map[string]models.Badge)
	for _, b := range h.Engine.Badges() {
		catalog[b.ID] = b
	}
	details := make([]models.Badge, 0, len(m.Badges))
	for _, awarded := range m.Badges {
		if b, ok := catalog[awarded.BadgeID]; ok {
			details = append(details, b)
		}
	}
	c.JSON(http.StatusOK, ImpactResponse{UserImpactMetrics: m, BadgeDetails: details})
}

func (h *ImpactHandler) ListBadges(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Badges())
}
