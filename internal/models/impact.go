package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BadgeCriterion names the cumulative metric a badge is measured against.
type BadgeCriterion string

const (
	CriterionPickups   BadgeCriterion = "pickups"
	CriterionWeight    BadgeCriterion = "weight"
	CriterionDonations BadgeCriterion = "donations"
	CriterionCO2       BadgeCriterion = "co2"
)

func (c BadgeCriterion) Valid() bool {
	switch c {
	case CriterionPickups, CriterionWeight, CriterionDonations, CriterionCO2:
		return true
	}
	return false
}

// Badge is a static achievement definition.
type Badge struct {
	ID          string          `bson:"_id" json:"id"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	Criterion   BadgeCriterion  `bson:"criterion" json:"criterion"`
	Threshold   decimal.Decimal `bson:"threshold" json:"threshold"`
	Tier        int             `bson:"tier" json:"tier"`
}

type AwardedBadge struct {
	BadgeID   string    `bson:"badgeID" json:"badgeID"`
	AwardedAt time.Time `bson:"awardedAt" json:"awardedAt"`
}

// UserImpactMetrics holds a user's cumulative totals. ImpactScore is a cache
// of the score function over the four totals and is rewritten with them.
type UserImpactMetrics struct {
	UserID              string          `bson:"_id" json:"userID"`
	TotalPickups        int64           `bson:"totalPickups" json:"totalPickups"`
	TotalWeight         decimal.Decimal `bson:"totalWeight" json:"totalWeight"`
	TotalDonationAmount decimal.Decimal `bson:"totalDonationAmount" json:"totalDonationAmount"`
	TotalCO2Saved       decimal.Decimal `bson:"totalCO2Saved" json:"totalCO2Saved"`
	ImpactScore         decimal.Decimal `bson:"impactScore" json:"impactScore"`
	Badges              []AwardedBadge  `bson:"badges" json:"badges"`
	Version             int64           `bson:"version" json:"version"`
	UpdatedAt           time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (m UserImpactMetrics) HasBadge(id string) bool {
	for _, b := range m.Badges {
		if b.BadgeID == id {
			return true
		}
	}
	return false
}

// Clone copies the badge slice so callers can append safely.
func (m UserImpactMetrics) Clone() UserImpactMetrics {
	out := m
	out.Badges = make([]AwardedBadge, len(m.Badges))
	copy(out.Badges, m.Badges)
	return out
}
