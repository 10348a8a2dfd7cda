package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
)

type state struct {
	pickups          map[string]models.PickupRequest
	campaigns        map[string]models.CSRCampaign
	donations        map[string]models.DonationRecord
	donationByPickup map[string]string
	metrics          map[string]models.UserImpactMetrics
	users            map[string]models.User
	userByEmail      map[string]string
}

func newState() *state {
	return &state{
		pickups:          make(map[string]models.PickupRequest),
		campaigns:        make(map[string]models.CSRCampaign),
		donations:        make(map[string]models.DonationRecord),
		donationByPickup: make(map[string]string),
		metrics:          make(map[string]models.UserImpactMetrics),
		users:            make(map[string]models.User),
		userByEmail:      make(map[string]string),
	}
}

// clone copies the maps. Stored values are never mutated in place, so the
// entries can be shared.
func (s *state) clone() *state {
	out := newState()
	for k, v := range s.pickups {
		out.pickups[k] = v
	}
	for k, v := range s.campaigns {
		out.campaigns[k] = v
	}
	for k, v := range s.donations {
		out.donations[k] = v
	}
	for k, v := range s.donationByPickup {
		out.donationByPickup[k] = v
	}
	for k, v := range s.metrics {
		out.metrics[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.userByEmail {
		out.userByEmail[k] = v
	}
	return out
}

type txKey struct{}

// Memory is an in-process Store. Writes and transactions are serialized;
// a transaction works on a copy of the state that replaces the live state
// only when the callback succeeds.
type Memory struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	st      *state
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

func (m *Memory) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

// write runs fn against the transaction state when ctx carries one, and
// against the live state otherwise. fn must validate before mutating.
func (m *Memory) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(tx)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	snapshot := m.st.clone()
	m.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, snapshot)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.st = snapshot
	m.mu.Unlock()
	return nil
}

// --- Pickups ---

func (m *Memory) CreatePickup(ctx context.Context, p models.PickupRequest) error {
	return m.write(ctx, func(st *state) error {
		if _, ok := st.pickups[p.ID]; ok {
			return fmt.Errorf("pickup %s: %w", p.ID, ErrDuplicate)
		}
		if p.Version == 0 {
			p.Version = 1
		}
		st.pickups[p.ID] = p.Clone()
		return nil
	})
}

func (m *Memory) GetPickup(ctx context.Context, id string) (models.PickupRequest, error) {
	var out models.PickupRequest
	err := m.read(ctx, func(st *state) error {
		p, ok := st.pickups[id]
		if !ok {
			return fmt.Errorf("pickup %s: %w", id, ErrNotFound)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (m *Memory) ListPickups(ctx context.Context, f PickupFilter) ([]models.PickupRequest, error) {
	out := []models.PickupRequest{}
	err := m.read(ctx, func(st *state) error {
		for _, p := range st.pickups {
			if f.matches(p) {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (m *Memory) UpdatePickup(ctx context.Context, p models.PickupRequest, expectedVersion int64) (models.PickupRequest, error) {
	var out models.PickupRequest
	err := m.write(ctx, func(st *state) error {
		cur, ok := st.pickups[p.ID]
		if !ok {
			return fmt.Errorf("pickup %s: %w", p.ID, ErrNotFound)
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("pickup %s at version %d, expected %d: %w", p.ID, cur.Version, expectedVersion, ErrConflict)
		}
		next := p.Clone()
		next.Version = expectedVersion + 1
		st.pickups[p.ID] = next
		out = next.Clone()
		return nil
	})
	return out, err
}

// --- Campaigns ---

func (m *Memory) CreateCampaign(ctx context.Context, c models.CSRCampaign) error {
	return m.write(ctx, func(st *state) error {
		if _, ok := st.campaigns[c.ID]; ok {
			return fmt.Errorf("campaign %s: %w", c.ID, ErrDuplicate)
		}
		c.TargetNGOIDs = append([]string(nil), c.TargetNGOIDs...)
		st.campaigns[c.ID] = c
		return nil
	})
}

func (m *Memory) GetCampaign(ctx context.Context, id string) (models.CSRCampaign, error) {
	var out models.CSRCampaign
	err := m.read(ctx, func(st *state) error {
		c, ok := st.campaigns[id]
		if !ok {
			return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		out = c
		out.TargetNGOIDs = append([]string(nil), c.TargetNGOIDs...)
		return nil
	})
	return out, err
}

func (m *Memory) ListCampaigns(ctx context.Context) ([]models.CSRCampaign, error) {
	out := []models.CSRCampaign{}
	err := m.read(ctx, func(st *state) error {
		for _, c := range st.campaigns {
			c.TargetNGOIDs = append([]string(nil), c.TargetNGOIDs...)
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (m *Memory) SetCampaignActive(ctx context.Context, id string, active bool) error {
	return m.write(ctx, func(st *state) error {
		c, ok := st.campaigns[id]
		if !ok {
			return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		c.Active = active
		st.campaigns[id] = c
		return nil
	})
}

func (m *Memory) ConsumeCampaignBudget(ctx context.Context, id string, amount decimal.Decimal) error {
	return m.write(ctx, func(st *state) error {
		c, ok := st.campaigns[id]
		if !ok {
			return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		if c.RemainingBudget.LessThan(amount) {
			return fmt.Errorf("campaign %s has %s left, need %s: %w", id, c.RemainingBudget, amount, ErrConflict)
		}
		c.RemainingBudget = c.RemainingBudget.Sub(amount)
		c.MatchedTotal = c.MatchedTotal.Add(amount)
		st.campaigns[id] = c
		return nil
	})
}

// --- Donations ---

func (m *Memory) CreateDonation(ctx context.Context, d models.DonationRecord) error {
	return m.write(ctx, func(st *state) error {
		if _, ok := st.donations[d.ID]; ok {
			return fmt.Errorf("donation %s: %w", d.ID, ErrDuplicate)
		}
		if _, ok := st.donationByPickup[d.PickupID]; ok {
			return fmt.Errorf("donation for pickup %s: %w", d.PickupID, ErrDuplicate)
		}
		st.donations[d.ID] = d
		st.donationByPickup[d.PickupID] = d.ID
		return nil
	})
}

func (m *Memory) GetDonation(ctx context.Context, id string) (models.DonationRecord, error) {
	var out models.DonationRecord
	err := m.read(ctx, func(st *state) error {
		d, ok := st.donations[id]
		if !ok {
			return fmt.Errorf("donation %s: %w", id, ErrNotFound)
		}
		out = d
		return nil
	})
	return out, err
}

func (m *Memory) ListDonations(ctx context.Context, userID string) ([]models.DonationRecord, error) {
	out := []models.DonationRecord{}
	err := m.read(ctx, func(st *state) error {
		for _, d := range st.donations {
			if userID == "" || d.UserID == userID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (m *Memory) UpdateDonationStatus(ctx context.Context, id string, from, to models.DonationStatus, at time.Time) (models.DonationRecord, error) {
	var out models.DonationRecord
	err := m.write(ctx, func(st *state) error {
		d, ok := st.donations[id]
		if !ok {
			return fmt.Errorf("donation %s: %w", id, ErrNotFound)
		}
		if d.Status != from {
			return fmt.Errorf("donation %s is %s, expected %s: %w", id, d.Status, from, ErrConflict)
		}
		d.Status = to
		d.UpdatedAt = at
		st.donations[id] = d
		out = d
		return nil
	})
	return out, err
}

// --- Metrics ---

func (m *Memory) GetMetrics(ctx context.Context, userID string) (models.UserImpactMetrics, error) {
	out := ZeroMetrics(userID)
	err := m.read(ctx, func(st *state) error {
		if cur, ok := st.metrics[userID]; ok {
			out = cur.Clone()
		}
		return nil
	})
	return out, err
}

func (m *Memory) SaveMetrics(ctx context.Context, um models.UserImpactMetrics, expectedVersion int64) (models.UserImpactMetrics, error) {
	var out models.UserImpactMetrics
	err := m.write(ctx, func(st *state) error {
		var current int64
		if cur, ok := st.metrics[um.UserID]; ok {
			current = cur.Version
		}
		if current != expectedVersion {
			return fmt.Errorf("metrics %s at version %d, expected %d: %w", um.UserID, current, expectedVersion, ErrConflict)
		}
		next := um.Clone()
		next.Version = expectedVersion + 1
		st.metrics[um.UserID] = next
		out = next.Clone()
		return nil
	})
	return out, err
}

// --- Users ---

func (m *Memory) CreateUser(ctx context.Context, u models.User) error {
	return m.write(ctx, func(st *state) error {
		if _, ok := st.userByEmail[u.Email]; ok {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		if _, ok := st.users[u.ID]; ok {
			return fmt.Errorf("user %s: %w", u.ID, ErrDuplicate)
		}
		st.users[u.ID] = u
		st.userByEmail[u.Email] = u.ID
		return nil
	})
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var out models.User
	err := m.read(ctx, func(st *state) error {
		id, ok := st.userByEmail[email]
		if !ok {
			return fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		out = st.users[id]
		return nil
	})
	return out, err
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var out models.User
	err := m.read(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		out = u
		return nil
	})
	return out, err
}
