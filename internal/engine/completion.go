package engine

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/badge"
	"recycle-pickup-api-server/internal/donation"
	"recycle-pickup-api-server/internal/impact"
	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// complete persists next, which has just been moved into completed, together
// with its donation, the campaign budget decrement, the user's metrics and
// any new badges. Either all of it commits or none of it does.
//
// at is the completion time already stamped on next; the donation, the
// campaign window check and the metrics use it too.
//
// The callback may run more than once when the store retries a transient
// transaction error, so it recomputes everything from what it reads.
func (e *Engine) complete(ctx context.Context, op string, version int64, next models.PickupRequest, at time.Time) (*Completion, error) {
	start := e.now()
	value, co2 := e.opts.Calculator.Compute(next.Materials)
	weight := impact.TotalWeight(next.Materials)

	var c Completion
	err := e.run(ctx, op, func(ctx context.Context) error {
		return e.store.WithTransaction(ctx, func(ctx context.Context) error {
			campaigns, err := e.store.ListCampaigns(ctx)
			if err != nil {
				return err
			}
			rec, match := donation.Create(next, value, campaigns, at)

			settled := next.Clone()
			settled.Settlement = &models.Settlement{
				TotalWeight:   weight,
				Value:         value,
				CO2Saved:      co2,
				DonationID:    rec.ID,
				DonationTotal: rec.TotalAmount,
			}
			saved, err := e.store.UpdatePickup(ctx, settled, version)
			if err != nil {
				return err
			}

			if match.Amount.IsPositive() {
				if err := e.store.ConsumeCampaignBudget(ctx, match.CampaignID, match.Amount); err != nil {
					return err
				}
			}
			if err := e.store.CreateDonation(ctx, rec); err != nil {
				return err
			}

			before, err := e.store.GetMetrics(ctx, next.UserID)
			if err != nil {
				return err
			}
			after := accumulate(before, weight, rec.TotalAmount, co2)
			after.ImpactScore = e.opts.Weights.Score(after.TotalPickups, after.TotalWeight, after.TotalDonationAmount, after.TotalCO2Saved)
			after.UpdatedAt = at

			awarded := e.opts.Badges.EvaluateChanged(before, after)
			after = badge.Award(after, awarded, at)

			metrics, err := e.store.SaveMetrics(ctx, after, before.Version)
			if err != nil {
				return err
			}

			c = Completion{
				Pickup:          saved,
				Donation:        rec,
				Metrics:         metrics,
				NewBadges:       awarded,
				BudgetExhausted: match.BudgetExhausted,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log := e.opts.Logger.WithFields(logrus.Fields{
		"pickup_id":   c.Pickup.ID,
		"user_id":     c.Pickup.UserID,
		"donation_id": c.Donation.ID,
	})
	if c.BudgetExhausted {
		log.Warn("CSR campaign budget exhausted, donation created without match")
	}
	for _, b := range c.NewBadges {
		log.WithField("badge_id", b.ID).Info("badge awarded")
	}

	matched, _ := c.Donation.MatchedAmount.Float64()
	e.opts.Recorder.Completed(e.now().Sub(start), matched)
	return &c, nil
}

// accumulate adds one completed pickup to the user's totals.
func accumulate(m models.UserImpactMetrics, weight, donated, co2 decimal.Decimal) models.UserImpactMetrics {
	out := m.Clone()
	out.TotalPickups++
	out.TotalWeight = out.TotalWeight.Add(weight)
	out.TotalDonationAmount = out.TotalDonationAmount.Add(donated)
	out.TotalCO2Saved = out.TotalCO2Saved.Add(co2)
	return out
}
