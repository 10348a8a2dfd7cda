package handlers

import (
	"net/http"

	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type DonationHandler struct {
	Engine *engine.Engine
}

type AdvanceDonationRequest struct {
	Status string `json:"status" binding:"required,oneof=processed transferred failed"`
}

func (h *DonationHandler) GetDonation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	d, err := h.Engine.Donation(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDonations returns the caller's donations, or every donation for admins.
func (h *DonationHandler) ListDonations(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	donations, err := h.Engine.Donations(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if donations == nil {
		donations = []models.DonationRecord{}
	}
	c.JSON(http.StatusOK, donations)
}

// AdvanceDonation is called by the transfer process to move a donation along
// pending, processed, transferred or failed.
func (h *DonationHandler) AdvanceDonation(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req AdvanceDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.Engine.AdvanceDonation(c.Request.Context(), actor, c.Param("id"), models.DonationStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
