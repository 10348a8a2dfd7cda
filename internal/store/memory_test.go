package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func testPickup(id, user string) models.PickupRequest {
	return models.PickupRequest{
		ID:     id,
		UserID: user,
		Materials: []models.Material{
			{Type: models.MaterialPaper, EstimatedWeight: decimal.NewFromInt(2)},
		},
		Status:    models.StatusScheduled,
		NGOID:     "ngo-1",
		CreatedAt: t0,
	}
}

func TestMemory_PickupVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.CreatePickup(ctx, testPickup("PU-1", "u1")))
	assert.ErrorIs(t, s.CreatePickup(ctx, testPickup("PU-1", "u1")), ErrDuplicate)

	p, err := s.GetPickup(ctx, "PU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)

	p.Status = models.StatusAssigned
	updated, err := s.UpdatePickup(ctx, p, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// A writer still holding version 1 loses.
	_, err = s.UpdatePickup(ctx, p, 1)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.UpdatePickup(ctx, testPickup("PU-404", "u1"), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetPickup(ctx, "PU-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreatePickup(ctx, testPickup("PU-1", "u1")))

	p, err := s.GetPickup(ctx, "PU-1")
	require.NoError(t, err)
	p.Materials[0].Type = models.MaterialMetal

	again, err := s.GetPickup(ctx, "PU-1")
	require.NoError(t, err)
	assert.Equal(t, models.MaterialPaper, again.Materials[0].Type)
}

func TestMemory_ListPickupsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	done := func(id, user, community string, at time.Time) models.PickupRequest {
		p := testPickup(id, user)
		p.Status = models.StatusCompleted
		p.CommunityID = community
		p.CompletedAt = &at
		p.CreatedAt = at
		return p
	}
	require.NoError(t, s.CreatePickup(ctx, done("PU-1", "u1", "c1", t0)))
	require.NoError(t, s.CreatePickup(ctx, done("PU-2", "u2", "c2", t0.Add(time.Hour))))
	require.NoError(t, s.CreatePickup(ctx, done("PU-3", "u1", "c1", t0.Add(48*time.Hour))))
	require.NoError(t, s.CreatePickup(ctx, testPickup("PU-4", "u1")))

	all, err := s.ListPickups(ctx, PickupFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	window, err := s.ListPickups(ctx, PickupFilter{CompletedFrom: t0, CompletedTo: t0.Add(48 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "PU-2", window[0].ID, "newest first")

	community, err := s.ListPickups(ctx, PickupFilter{CommunityID: "c1", Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, community, 2)
}

func TestMemory_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreatePickup(ctx, testPickup("PU-1", "u1")))

	boom := errors.New("donation insert failed")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.GetPickup(ctx, "PU-1")
		if err != nil {
			return err
		}
		p.Status = models.StatusCompleted
		if _, err := s.UpdatePickup(ctx, p, p.Version); err != nil {
			return err
		}
		m := ZeroMetrics("u1")
		m.TotalPickups = 1
		if _, err := s.SaveMetrics(ctx, m, 0); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.GetPickup(ctx, "PU-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, p.Status)
	assert.Equal(t, int64(1), p.Version)

	m, err := s.GetMetrics(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, m.TotalPickups)
	assert.Zero(t, m.Version)
}

func TestMemory_TransactionCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.CreatePickup(ctx, testPickup("PU-1", "u1")); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		_, err := s.GetPickup(ctx, "PU-1")
		return err
	})
	require.NoError(t, err)

	_, err = s.GetPickup(ctx, "PU-1")
	assert.NoError(t, err)
}

func TestMemory_CampaignBudget(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateCampaign(ctx, models.CSRCampaign{
		ID:              "camp-1",
		MaxMatchAmount:  decimal.NewFromInt(100),
		RemainingBudget: decimal.NewFromInt(100),
		MatchedTotal:    decimal.Zero,
		Active:          true,
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ConsumeCampaignBudget(ctx, "camp-1", decimal.NewFromInt(30)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrConflict)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	c, err := s.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "10", c.RemainingBudget.String())
	assert.Equal(t, "90", c.MatchedTotal.String())

	require.NoError(t, s.SetCampaignActive(ctx, "camp-1", false))
	c, err = s.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	assert.False(t, c.Active)
}

func TestMemory_DonationPerPickupUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	d := models.DonationRecord{ID: "DON-1", PickupID: "PU-1", UserID: "u1", Status: models.DonationPending, CreatedAt: t0}
	require.NoError(t, s.CreateDonation(ctx, d))

	d.ID = "DON-2"
	assert.ErrorIs(t, s.CreateDonation(ctx, d), ErrDuplicate)

	list, err := s.ListDonations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := s.UpdateDonationStatus(ctx, "DON-1", models.DonationPending, models.DonationProcessed, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.DonationProcessed, got.Status)

	_, err = s.UpdateDonationStatus(ctx, "DON-1", models.DonationPending, models.DonationFailed, t0)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_MetricsVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	m, err := s.GetMetrics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Version)
	assert.NotNil(t, m.Badges)

	m.TotalPickups = 1
	saved, err := s.SaveMetrics(ctx, m, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	_, err = s.SaveMetrics(ctx, m, 0)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	u := models.User{ID: "USR-1", Email: "a@example.com", Role: models.RoleUser}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, models.User{ID: "USR-2", Email: "a@example.com"}), ErrDuplicate)

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "USR-1", got.ID)

	_, err = s.GetUserByID(ctx, "USR-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CancelledContext(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetPickup(ctx, "PU-1")
	assert.ErrorIs(t, err, context.Canceled)
}
