package events

import (
	"context"
	"encoding/json"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/models"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types published on the accounting topic.
const (
	PickupStatusChanged = "pickup.status_changed"
	PickupCancelled     = "pickup.cancelled"
	PickupCompleted     = "pickup.completed"
	DonationCreated     = "donation.created"
	BadgeAwarded        = "badge.awarded"
)

// Event is the JSON envelope of every message. Messages are keyed by pickup
// id so all events of one pickup land on the same partition in order.
type Event struct {
	Type       string      `json:"type"`
	PickupID   string      `json:"pickupID"`
	UserID     string      `json:"userID"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher forwards committed lifecycle changes to Kafka for the transfer
// process and other consumers. Delivery is best effort.
type Publisher struct {
	writer messageWriter
	log    logrus.FieldLogger
}

var _ engine.Listener = (*Publisher)(nil)

func NewPublisher(cfg config.KafkaConfig, log logrus.FieldLogger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("count", len(messages)).Error("failed to publish pickup events")
			}
		},
	}
	return &Publisher{writer: w, log: log}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) PickupChanged(ctx context.Context, pickup models.PickupRequest) {
	if pickup.Status == models.StatusCompleted {
		// Covered by PickupCompleted.
		return
	}
	p.publish(ctx, pickup.ID, ChangeMessages(pickup))
}

func (p *Publisher) PickupCompleted(ctx context.Context, c engine.Completion) {
	p.publish(ctx, c.Pickup.ID, CompletionMessages(c))
}

func (p *Publisher) publish(ctx context.Context, pickupID string, msgs []kafka.Message) {
	if len(msgs) == 0 {
		return
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.WithError(err).WithField("pickup_id", pickupID).Error("failed to publish pickup events")
	}
}

// ChangeMessages builds the message for a non-completion status change.
func ChangeMessages(p models.PickupRequest) []kafka.Message {
	typ := PickupStatusChanged
	if p.Status == models.StatusCancelled {
		typ = PickupCancelled
	}
	data := map[string]interface{}{"status": p.Status, "version": p.Version}
	if p.AgentID != "" {
		data["agentID"] = p.AgentID
	}
	if p.CancelReason != "" {
		data["reason"] = p.CancelReason
	}
	return encode(p.ID, Event{Type: typ, PickupID: p.ID, UserID: p.UserID, OccurredAt: p.UpdatedAt, Data: data})
}

// CompletionMessages builds the completed, donation and badge events of one
// completion, in that order.
func CompletionMessages(c engine.Completion) []kafka.Message {
	at := c.Pickup.UpdatedAt
	evs := []Event{
		{Type: PickupCompleted, PickupID: c.Pickup.ID, UserID: c.Pickup.UserID, OccurredAt: at, Data: c.Pickup.Settlement},
		{Type: DonationCreated, PickupID: c.Pickup.ID, UserID: c.Pickup.UserID, OccurredAt: at, Data: map[string]interface{}{
			"donation":        c.Donation,
			"budgetExhausted": c.BudgetExhausted,
		}},
	}
	for _, b := range c.NewBadges {
		evs = append(evs, Event{Type: BadgeAwarded, PickupID: c.Pickup.ID, UserID: c.Pickup.UserID, OccurredAt: at, Data: b})
	}
	return encode(c.Pickup.ID, evs...)
}

func encode(key string, evs ...Event) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		value, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(key),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Type)},
			},
		})
	}
	return msgs
}
