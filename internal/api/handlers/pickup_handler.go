// server/internal/api/handlers/pickup_handler.go
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"recycle-pickup-api-server/internal/api/middleware"
	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/retry"
	"recycle-pickup-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EvidenceStore uploads collection photos and returns a reference URL.
type EvidenceStore interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

const maxEvidenceSize = 10 << 20

type PickupHandler struct {
	Engine   *engine.Engine
	Evidence EvidenceStore
}

// --- Request bodies ---

type MaterialPayload struct {
	Type            string          `json:"type" binding:"required,material"`
	EstimatedWeight decimal.Decimal `json:"estimatedWeight"`
}

type CreatePickupRequest struct {
	CommunityID   string            `json:"communityID"`
	Materials     []MaterialPayload `json:"materials" binding:"required,min=1,dive"`
	RequestedDate time.Time         `json:"requestedDate" binding:"required"`
	TimeSlot      string            `json:"timeSlot" binding:"required,timeslot"`
	Address       models.Address    `json:"address" binding:"required"`
	NGOID         string            `json:"ngoID" binding:"required"`
}

type AssignRequest struct {
	AgentID string `json:"agentID" binding:"required"`
}

// CollectRequest carries actual weights keyed by material index. Materials
// without an entry keep their estimate.
type CollectRequest struct {
	ActualWeights map[int]decimal.Decimal `json:"actualWeights"`
	EvidenceRef   string                  `json:"evidenceRef"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// TransitionResponse is the pickup after a transition, plus what the
// completion produced when the pickup reached completed.
type TransitionResponse struct {
	Pickup          models.PickupRequest   `json:"pickup"`
	Donation        *models.DonationRecord `json:"donation,omitempty"`
	NewBadges       []models.Badge         `json:"newBadges,omitempty"`
	BudgetExhausted bool                   `json:"budgetExhausted,omitempty"`
}

// --- Handlers ---

func (h *PickupHandler) CreatePickup(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	materials := make([]models.Material, len(req.Materials))
	for i, m := range req.Materials {
		materials[i] = models.Material{Type: models.MaterialType(m.Type), EstimatedWeight: m.EstimatedWeight}
	}
	communityID := req.CommunityID
	if communityID == "" {
		communityID = c.GetString(middleware.KeyCommunityID)
	}

	p, err := h.Engine.CreatePickup(c.Request.Context(), actor, engine.NewPickup{
		CommunityID:   communityID,
		Materials:     materials,
		RequestedDate: req.RequestedDate,
		TimeSlot:      models.TimeSlot(req.TimeSlot),
		Address:       req.Address,
		NGOID:         req.NGOID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PickupHandler) GetPickup(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p, err := h.Engine.Pickup(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListPickups serves the caller's own pickups for users and agents and any
// filter for admins.
func (h *PickupHandler) ListPickups(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	f := store.PickupFilter{
		UserID:      c.Query("userID"),
		AgentID:     c.Query("agentID"),
		Status:      models.PickupStatus(c.Query("status")),
		CommunityID: c.Query("communityID"),
	}
	pickups, err := h.Engine.Pickups(c.Request.Context(), actor, f)
	if err != nil {
		respondError(c, err)
		return
	}
	if pickups == nil {
		pickups = []models.PickupRequest{}
	}
	c.JSON(http.StatusOK, pickups)
}

func (h *PickupHandler) AssignAgent(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.transition(c, lifecycle.Assign(req.AgentID))
}

func (h *PickupHandler) StartPickup(c *gin.Context) {
	h.transition(c, lifecycle.Start())
}

func (h *PickupHandler) CollectPickup(c *gin.Context) {
	var req CollectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.transition(c, lifecycle.Collect(req.ActualWeights, req.EvidenceRef))
}

func (h *PickupHandler) CompletePickup(c *gin.Context) {
	h.transition(c, lifecycle.Complete())
}

func (h *PickupHandler) CancelPickup(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.transition(c, lifecycle.Cancel(req.Reason))
}

// transition applies ev, retrying conflicts and store timeouts with backoff
// against fresh state.
func (h *PickupHandler) transition(c *gin.Context, ev lifecycle.Event) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	out, err := retry.Do(ctx, func() (*engine.Outcome, error) {
		return h.Engine.Transition(ctx, actor, id, ev)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := TransitionResponse{Pickup: out.Pickup}
	if out.Completion != nil {
		d := out.Completion.Donation
		resp.Donation = &d
		resp.NewBadges = out.Completion.NewBadges
		resp.BudgetExhausted = out.Completion.BudgetExhausted
	}
	c.JSON(http.StatusOK, resp)
}

// UploadEvidence stores a collection photo for a pickup the calling agent is
// working on. The returned reference is then passed to collect.
func (h *PickupHandler) UploadEvidence(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if h.Evidence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Evidence storage is not configured"})
		return
	}

	p, err := h.Engine.Pickup(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if p.AgentID != actor.ActorID() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the assigned agent can upload evidence", "kind": lifecycle.Unauthorized.String()})
		return
	}
	if p.Status != models.StatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Evidence can only be uploaded while in progress, pickup is %s", p.Status), "kind": lifecycle.InvalidState.String()})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo file is required"})
		return
	}
	if fileHeader.Size > maxEvidenceSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo exceeds 10MB"})
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo must be an image"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	objectKey := fmt.Sprintf("pickups/%s/%s%s", p.ID, uuid.New().String(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	ref, err := h.Evidence.UploadFile(c.Request.Context(), file, objectKey, contentType)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload photo"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"evidenceRef": ref})
}
