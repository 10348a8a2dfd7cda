package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CSRCampaign is a company-funded pool that matches donations.
// MatchedTotal never exceeds MaxMatchAmount; RemainingBudget is kept
// alongside it so the decrement can be a single conditional update.
type CSRCampaign struct {
	ID              string          `bson:"_id" json:"id"`
	Company         string          `bson:"company" json:"company"`
	MatchingRatio   decimal.Decimal `bson:"matchingRatio" json:"matchingRatio"`
	MaxMatchAmount  decimal.Decimal `bson:"maxMatchAmount" json:"maxMatchAmount"`
	PerDonationCap  decimal.Decimal `bson:"perDonationCap" json:"perDonationCap"`
	MatchedTotal    decimal.Decimal `bson:"matchedTotal" json:"matchedTotal"`
	RemainingBudget decimal.Decimal `bson:"remainingBudget" json:"remainingBudget"`
	StartDate       time.Time       `bson:"startDate" json:"startDate"`
	EndDate         time.Time       `bson:"endDate" json:"endDate"`
	Active          bool            `bson:"active" json:"active"`
	TargetNGOIDs    []string        `bson:"targetNGOIDs" json:"targetNGOIDs"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
}

// ActiveAt reports whether the campaign is switched on and t falls in
// [StartDate, EndDate).
func (c CSRCampaign) ActiveAt(t time.Time) bool {
	return c.Active && !t.Before(c.StartDate) && t.Before(c.EndDate)
}

// Targets reports whether donations to ngoID are eligible. An empty target
// set means every NGO is eligible.
func (c CSRCampaign) Targets(ngoID string) bool {
	if len(c.TargetNGOIDs) == 0 {
		return true
	}
	for _, id := range c.TargetNGOIDs {
		if id == ngoID {
			return true
		}
	}
	return false
}
