package handlers

import (
	"net/http"
	"time"

	"recycle-pickup-api-server/internal/engine"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CampaignHandler struct {
	Engine *engine.Engine
}

type CreateCampaignRequest struct {
	Company        string          `json:"company" binding:"required"`
	MatchingRatio  decimal.Decimal `json:"matchingRatio"`
	MaxMatchAmount decimal.Decimal `json:"maxMatchAmount"`
	PerDonationCap decimal.Decimal `json:"perDonationCap"`
	StartDate      time.Time       `json:"startDate" binding:"required"`
	EndDate        time.Time       `json:"endDate" binding:"required"`
	TargetNGOIDs   []string        `json:"targetNGOIDs"`
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.Engine.CreateCampaign(c.Request.Context(), actor, engine.NewCampaign{
		Company:        req.Company,
		MatchingRatio:  req.MatchingRatio,
		MaxMatchAmount: req.MaxMatchAmount,
		PerDonationCap: req.PerDonationCap,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TargetNGOIDs:   req.TargetNGOIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	campaigns, err := h.Engine.Campaigns(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *CampaignHandler) DeactivateCampaign(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := h.Engine.DeactivateCampaign(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "campaignID": c.Param("id"), "active": false})
}
