package engine

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Donation returns a donation visible to actor: its donor or an admin.
func (e *Engine) Donation(ctx context.Context, actor lifecycle.Actor, id string) (models.DonationRecord, error) {
	const op = "donation.get"
	var d models.DonationRecord
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		d, err = e.store.GetDonation(ctx, id)
		return err
	})
	if err != nil {
		return d, err
	}
	switch a := actor.(type) {
	case lifecycle.Admin:
		return d, nil
	case lifecycle.User:
		if a.ID == d.UserID {
			return d, nil
		}
	}
	return models.DonationRecord{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "donation %s is not visible to this actor", id)
}

// Donations lists the actor's own donations, or every donation for an admin.
func (e *Engine) Donations(ctx context.Context, actor lifecycle.Actor) ([]models.DonationRecord, error) {
	const op = "donation.list"
	userID := ""
	switch a := actor.(type) {
	case lifecycle.Admin:
	case lifecycle.User:
		userID = a.ID
	default:
		return nil, lifecycle.Errorf(lifecycle.Unauthorized, op, "only users and admins have donations")
	}

	var out []models.DonationRecord
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = e.store.ListDonations(ctx, userID)
		return err
	})
	return out, err
}

// AdvanceDonation moves a donation along pending -> processed -> transferred,
// or to failed, on behalf of the transfer process.
func (e *Engine) AdvanceDonation(ctx context.Context, actor lifecycle.Actor, id string, to models.DonationStatus) (models.DonationRecord, error) {
	const op = "donation.status"
	if _, ok := actor.(lifecycle.Admin); !ok {
		return models.DonationRecord{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "only admins can change donation status")
	}

	var out models.DonationRecord
	err := e.run(ctx, op, func(ctx context.Context) error {
		cur, err := e.store.GetDonation(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Status.CanAdvanceTo(to) {
			return lifecycle.Errorf(lifecycle.InvalidTransition, op, "donation %s cannot move from %s to %s", id, cur.Status, to)
		}
		out, err = e.store.UpdateDonationStatus(ctx, id, cur.Status, to, e.now())
		return err
	})
	if err != nil {
		return out, err
	}
	e.opts.Logger.WithFields(logrus.Fields{"donation_id": id, "status": to}).Info("donation status changed")
	return out, nil
}

// NewCampaign describes a CSR campaign created by an admin.
type NewCampaign struct {
	Company        string
	MatchingRatio  decimal.Decimal
	MaxMatchAmount decimal.Decimal
	PerDonationCap decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	TargetNGOIDs   []string
}

func (e *Engine) CreateCampaign(ctx context.Context, actor lifecycle.Actor, req NewCampaign) (models.CSRCampaign, error) {
	const op = "campaign.create"
	if _, ok := actor.(lifecycle.Admin); !ok {
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "only admins can create campaigns")
	}
	switch {
	case req.Company == "":
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.ValidationFailure, op, "company is required")
	case req.MatchingRatio.IsNegative():
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.ValidationFailure, op, "matching ratio cannot be negative")
	case !req.MaxMatchAmount.IsPositive():
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.ValidationFailure, op, "max match amount must be positive")
	case req.PerDonationCap.IsNegative():
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.ValidationFailure, op, "per-donation cap cannot be negative")
	case !req.EndDate.After(req.StartDate):
		return models.CSRCampaign{}, lifecycle.Errorf(lifecycle.ValidationFailure, op, "end date must be after start date")
	}

	now := e.now()
	c := models.CSRCampaign{
		ID:              newCampaignID(now),
		Company:         req.Company,
		MatchingRatio:   req.MatchingRatio,
		MaxMatchAmount:  req.MaxMatchAmount,
		PerDonationCap:  req.PerDonationCap,
		MatchedTotal:    decimal.Zero,
		RemainingBudget: req.MaxMatchAmount,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Active:          true,
		TargetNGOIDs:    append([]string{}, req.TargetNGOIDs...),
		CreatedAt:       now,
	}
	err := e.run(ctx, op, func(ctx context.Context) error {
		return e.store.CreateCampaign(ctx, c)
	})
	if err != nil {
		return models.CSRCampaign{}, err
	}
	e.opts.Logger.WithFields(logrus.Fields{"campaign_id": c.ID, "company": c.Company}).Info("CSR campaign created")
	return c, nil
}

// newCampaignID returns an id that sorts by creation time.
func newCampaignID(at time.Time) string {
	return "CSR-" + at.UTC().Format("20060102T150405") + "-" + uuid.New().String()[:8]
}

func (e *Engine) Campaigns(ctx context.Context, actor lifecycle.Actor) ([]models.CSRCampaign, error) {
	const op = "campaign.list"
	if _, ok := actor.(lifecycle.Admin); !ok {
		return nil, lifecycle.Errorf(lifecycle.Unauthorized, op, "only admins can list campaigns")
	}
	var out []models.CSRCampaign
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = e.store.ListCampaigns(ctx)
		return err
	})
	return out, err
}

func (e *Engine) DeactivateCampaign(ctx context.Context, actor lifecycle.Actor, id string) error {
	const op = "campaign.deactivate"
	if _, ok := actor.(lifecycle.Admin); !ok {
		return lifecycle.Errorf(lifecycle.Unauthorized, op, "only admins can deactivate campaigns")
	}
	return e.run(ctx, op, func(ctx context.Context) error {
		return e.store.SetCampaignActive(ctx, id, false)
	})
}

// Metrics returns a user's impact totals. Users see their own; admins see
// anyone's.
func (e *Engine) Metrics(ctx context.Context, actor lifecycle.Actor, userID string) (models.UserImpactMetrics, error) {
	const op = "metrics.get"
	switch a := actor.(type) {
	case lifecycle.Admin:
	case lifecycle.User:
		if a.ID != userID {
			return models.UserImpactMetrics{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "metrics of another user")
		}
	default:
		return models.UserImpactMetrics{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "only users and admins have metrics")
	}

	var m models.UserImpactMetrics
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		m, err = e.store.GetMetrics(ctx, userID)
		return err
	})
	return m, err
}
