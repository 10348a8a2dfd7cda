package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PickupStatus string

const (
	StatusScheduled  PickupStatus = "scheduled"
	StatusAssigned   PickupStatus = "assigned"
	StatusInProgress PickupStatus = "in-progress"
	StatusCollected  PickupStatus = "collected"
	StatusCompleted  PickupStatus = "completed"
	StatusCancelled  PickupStatus = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s PickupStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Material is one typed, weighed unit inside a pickup. ActualWeight stays nil
// until the agent records the collection.
type Material struct {
	Type            MaterialType     `bson:"type" json:"type"`
	EstimatedWeight decimal.Decimal  `bson:"estimatedWeight" json:"estimatedWeight"`
	ActualWeight    *decimal.Decimal `bson:"actualWeight,omitempty" json:"actualWeight,omitempty"`
}

// Settlement summarises what a completed pickup contributed. It is written in
// the same unit of work as the donation and metric updates.
type Settlement struct {
	TotalWeight   decimal.Decimal `bson:"totalWeight" json:"totalWeight"`
	Value         decimal.Decimal `bson:"value" json:"value"`
	CO2Saved      decimal.Decimal `bson:"co2Saved" json:"co2Saved"`
	DonationID    string          `bson:"donationID" json:"donationID"`
	DonationTotal decimal.Decimal `bson:"donationTotal" json:"donationTotal"`
}

type PickupRequest struct {
	ID            string       `bson:"_id" json:"id"`
	UserID        string       `bson:"userID" json:"userID"`
	CommunityID   string       `bson:"communityID,omitempty" json:"communityID,omitempty"`
	Materials     []Material   `bson:"materials" json:"materials"`
	RequestedDate time.Time    `bson:"requestedDate" json:"requestedDate"`
	TimeSlot      TimeSlot     `bson:"timeSlot" json:"timeSlot"`
	Address       Address      `bson:"address" json:"address"`
	Status        PickupStatus `bson:"status" json:"status"`
	AgentID       string       `bson:"agentID,omitempty" json:"agentID,omitempty"`
	NGOID         string       `bson:"ngoID" json:"ngoID"`
	EvidenceRef   string       `bson:"evidenceRef,omitempty" json:"evidenceRef,omitempty"`
	CancelReason  string       `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	Settlement    *Settlement  `bson:"settlement,omitempty" json:"settlement,omitempty"`
	Version       int64        `bson:"version" json:"version"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	AssignedAt  *time.Time `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CollectedAt *time.Time `bson:"collectedAt,omitempty" json:"collectedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy, so a transition never aliases the caller's record.
func (p PickupRequest) Clone() PickupRequest {
	out := p
	out.Materials = make([]Material, len(p.Materials))
	for i, m := range p.Materials {
		out.Materials[i] = m
		if m.ActualWeight != nil {
			w := *m.ActualWeight
			out.Materials[i].ActualWeight = &w
		}
	}
	if p.Settlement != nil {
		s := *p.Settlement
		out.Settlement = &s
	}
	out.AssignedAt = cloneTime(p.AssignedAt)
	out.StartedAt = cloneTime(p.StartedAt)
	out.CollectedAt = cloneTime(p.CollectedAt)
	out.CompletedAt = cloneTime(p.CompletedAt)
	out.CancelledAt = cloneTime(p.CancelledAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
