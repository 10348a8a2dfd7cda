// Package donation turns the value of a completed pickup into a donation
// record and applies CSR campaign matching.
//
// Matching rule: qualifying campaigns are ordered by creation time, then id,
// and only the first one is applied. Matches never stack across campaigns.
package donation

import (
	"sort"
	"time"

	"recycle-pickup-api-server/internal/impact"
	"recycle-pickup-api-server/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Match is the outcome of campaign matching for one donation.
type Match struct {
	CampaignID string
	Amount     decimal.Decimal
	// BudgetExhausted is set when a campaign qualified but had no budget
	// left. The donation is still created, with a zero match.
	BudgetExhausted bool
}

// SelectCampaign returns the oldest qualifying campaign. Campaigns created at
// the same instant are ordered by id.
func SelectCampaign(campaigns []models.CSRCampaign, ngoID string, now time.Time) (models.CSRCampaign, bool) {
	sorted := append([]models.CSRCampaign(nil), campaigns...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, c := range sorted {
		if c.ActiveAt(now) && c.Targets(ngoID) {
			return c, true
		}
	}
	return models.CSRCampaign{}, false
}

// ComputeMatch applies min(value*ratio, perDonationCap, maxMatchAmount,
// remainingBudget), rounded to the minor unit and floored at zero.
func ComputeMatch(c models.CSRCampaign, value decimal.Decimal) Match {
	m := Match{CampaignID: c.ID}
	if !c.RemainingBudget.IsPositive() {
		m.Amount = decimal.Zero
		m.BudgetExhausted = true
		return m
	}

	amount := value.Mul(c.MatchingRatio)
	if c.PerDonationCap.IsPositive() {
		amount = decimal.Min(amount, c.PerDonationCap)
	}
	if c.MaxMatchAmount.IsPositive() {
		amount = decimal.Min(amount, c.MaxMatchAmount)
	}
	amount = decimal.Min(amount, c.RemainingBudget)

	// Round down so the match never exceeds the remaining budget.
	amount = amount.RoundFloor(impact.MoneyPlaces)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	m.Amount = amount
	return m
}

// Create builds the donation record for a pickup with the given material
// value. The campaign budget decrement is left to the caller, who must apply
// it in the same unit of work as persisting the record.
func Create(p models.PickupRequest, value decimal.Decimal, campaigns []models.CSRCampaign, now time.Time) (models.DonationRecord, Match) {
	base := value.Round(impact.MoneyPlaces)
	if base.IsNegative() {
		base = decimal.Zero
	}

	match := Match{Amount: decimal.Zero}
	if c, ok := SelectCampaign(campaigns, p.NGOID, now); ok {
		match = ComputeMatch(c, base)
	}

	rec := models.DonationRecord{
		ID:            "DON-" + uuid.New().String(),
		PickupID:      p.ID,
		UserID:        p.UserID,
		NGOID:         p.NGOID,
		BaseAmount:    base,
		MatchedAmount: match.Amount,
		TotalAmount:   base.Add(match.Amount),
		Status:        models.DonationPending,
		ReceiptID:     NewReceiptID(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if match.Amount.IsPositive() {
		rec.CampaignID = match.CampaignID
	}
	return rec, match
}

// NewReceiptID returns a globally unique receipt identifier.
func NewReceiptID() string {
	return "RCPT-" + uuid.New().String()
}
