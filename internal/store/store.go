// Package store persists pickups, donations, campaigns, impact metrics and
// users. Every mutation of a versioned document is conditional on the
// version the caller read; a mismatch returns ErrConflict.
package store

import (
	"context"
	"errors"
	"time"

	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("version conflict")
	ErrDuplicate = errors.New("duplicate key")
)

// PickupFilter narrows ListPickups. Zero fields are ignored. The completion
// bounds form a half-open window [CompletedFrom, CompletedTo).
type PickupFilter struct {
	UserID        string
	AgentID       string
	Status        models.PickupStatus
	CommunityID   string
	CompletedFrom time.Time
	CompletedTo   time.Time
}

// Store is the persistence boundary of the engine. Implementations must make
// WithTransaction all-or-nothing: when fn returns an error, none of the writes
// made through the ctx passed to fn are visible afterwards.
type Store interface {
	CreatePickup(ctx context.Context, p models.PickupRequest) error
	GetPickup(ctx context.Context, id string) (models.PickupRequest, error)
	ListPickups(ctx context.Context, f PickupFilter) ([]models.PickupRequest, error)
	// UpdatePickup replaces p when the stored version equals expectedVersion
	// and bumps the version.
	UpdatePickup(ctx context.Context, p models.PickupRequest, expectedVersion int64) (models.PickupRequest, error)

	CreateCampaign(ctx context.Context, c models.CSRCampaign) error
	GetCampaign(ctx context.Context, id string) (models.CSRCampaign, error)
	ListCampaigns(ctx context.Context) ([]models.CSRCampaign, error)
	SetCampaignActive(ctx context.Context, id string, active bool) error
	// ConsumeCampaignBudget atomically moves amount from the remaining
	// budget to the matched total. It fails with ErrConflict when less than
	// amount remains.
	ConsumeCampaignBudget(ctx context.Context, id string, amount decimal.Decimal) error

	CreateDonation(ctx context.Context, d models.DonationRecord) error
	GetDonation(ctx context.Context, id string) (models.DonationRecord, error)
	ListDonations(ctx context.Context, userID string) ([]models.DonationRecord, error)
	UpdateDonationStatus(ctx context.Context, id string, from, to models.DonationStatus, at time.Time) (models.DonationRecord, error)

	// GetMetrics returns zeroed metrics with version 0 for unknown users.
	GetMetrics(ctx context.Context, userID string) (models.UserImpactMetrics, error)
	SaveMetrics(ctx context.Context, m models.UserImpactMetrics, expectedVersion int64) (models.UserImpactMetrics, error)

	CreateUser(ctx context.Context, u models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)

	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ZeroMetrics is the starting point for a user with no completed pickups.
func ZeroMetrics(userID string) models.UserImpactMetrics {
	return models.UserImpactMetrics{
		UserID:              userID,
		TotalWeight:         decimal.Zero,
		TotalDonationAmount: decimal.Zero,
		TotalCO2Saved:       decimal.Zero,
		ImpactScore:         decimal.Zero,
		Badges:              []models.AwardedBadge{},
	}
}

func (f PickupFilter) matches(p models.PickupRequest) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.AgentID != "" && p.AgentID != f.AgentID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.CommunityID != "" && p.CommunityID != f.CommunityID {
		return false
	}
	if !f.CompletedFrom.IsZero() || !f.CompletedTo.IsZero() {
		if p.CompletedAt == nil {
			return false
		}
		if !f.CompletedFrom.IsZero() && p.CompletedAt.Before(f.CompletedFrom) {
			return false
		}
		if !f.CompletedTo.IsZero() && !p.CompletedAt.Before(f.CompletedTo) {
			return false
		}
	}
	return true
}
