package socket

import (
	"context"

	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/models"
)

const (
	TypePickupStatusChanged = "pickup_status_changed"
	TypeBadgeAwarded        = "badge_awarded"
	TypeDonationCreated     = "donation_created"
)

// Message is the envelope pushed to clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type statusPayload struct {
	PickupID string              `json:"pickupID"`
	Status   models.PickupStatus `json:"status"`
	Version  int64               `json:"version"`
}

// Notifier pushes pickup status changes to the owner and the assigned agent,
// and donations and new badges to the owner.
type Notifier struct {
	hub *Hub
}

var _ engine.Listener = (*Notifier)(nil)

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) PickupChanged(_ context.Context, p models.PickupRequest) {
	msg := Message{Type: TypePickupStatusChanged, Payload: statusPayload{PickupID: p.ID, Status: p.Status, Version: p.Version}}
	n.send(p.UserID, msg)
	if p.AgentID != "" && p.AgentID != p.UserID {
		n.send(p.AgentID, msg)
	}
}

func (n *Notifier) PickupCompleted(_ context.Context, c engine.Completion) {
	n.send(c.Pickup.UserID, Message{Type: TypeDonationCreated, Payload: c.Donation})
	for _, b := range c.NewBadges {
		n.send(c.Pickup.UserID, Message{Type: TypeBadgeAwarded, Payload: b})
	}
}

func (n *Notifier) send(userID string, msg Message) {
	if err := n.hub.SendJSON(userID, msg); err != nil {
		n.hub.log.WithError(err).WithField("user_id", userID).Warn("failed to push websocket message")
	}
}
