package engine

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/retry"
	"recycle-pickup-api-server/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewPickup is a user's scheduling request.
type NewPickup struct {
	CommunityID   string
	Materials     []models.Material
	RequestedDate time.Time
	TimeSlot      models.TimeSlot
	Address       models.Address
	NGOID         string
}

// Outcome is the result of a transition. Completion is set when the pickup
// reached completed, including through auto-completion.
type Outcome struct {
	Pickup     models.PickupRequest
	Completion *Completion
}

func (e *Engine) CreatePickup(ctx context.Context, actor lifecycle.Actor, req NewPickup) (models.PickupRequest, error) {
	const op = "pickup.create"

	u, ok := actor.(lifecycle.User)
	if !ok {
		return models.PickupRequest{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "only users can schedule pickups")
	}
	if err := validateNewPickup(op, req); err != nil {
		return models.PickupRequest{}, err
	}

	now := e.now()
	materials := make([]models.Material, len(req.Materials))
	for i, m := range req.Materials {
		materials[i] = models.Material{Type: m.Type, EstimatedWeight: m.EstimatedWeight}
	}
	p := models.PickupRequest{
		ID:            "PU-" + uuid.New().String(),
		UserID:        u.ID,
		CommunityID:   req.CommunityID,
		Materials:     materials,
		RequestedDate: req.RequestedDate,
		TimeSlot:      req.TimeSlot,
		Address:       req.Address,
		Status:        models.StatusScheduled,
		NGOID:         req.NGOID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := e.run(ctx, op, func(ctx context.Context) error {
		return e.store.CreatePickup(ctx, p)
	})
	if err != nil {
		return models.PickupRequest{}, err
	}

	e.opts.Logger.WithFields(logrus.Fields{"pickup_id": p.ID, "user_id": p.UserID}).Info("pickup scheduled")
	e.notifyChanged(ctx, p)
	return p, nil
}

func validateNewPickup(op string, req NewPickup) error {
	if len(req.Materials) == 0 {
		return lifecycle.Errorf(lifecycle.ValidationFailure, op, "at least one material is required")
	}
	for i, m := range req.Materials {
		if !m.Type.Valid() {
			return lifecycle.Errorf(lifecycle.ValidationFailure, op, "material %d has unknown type %q", i, m.Type)
		}
		if m.EstimatedWeight.IsNegative() {
			return lifecycle.Errorf(lifecycle.ValidationFailure, op, "material %d has a negative weight", i)
		}
	}
	if !req.TimeSlot.Valid() {
		return lifecycle.Errorf(lifecycle.ValidationFailure, op, "unknown time slot %q", req.TimeSlot)
	}
	if req.NGOID == "" {
		return lifecycle.Errorf(lifecycle.ValidationFailure, op, "an NGO must be selected")
	}
	return nil
}

// Pickup loads a pickup visible to actor.
func (e *Engine) Pickup(ctx context.Context, actor lifecycle.Actor, id string) (models.PickupRequest, error) {
	const op = "pickup.get"
	p, err := e.load(ctx, op, id)
	if err != nil {
		return p, err
	}
	if !canView(actor, p) {
		return models.PickupRequest{}, lifecycle.Errorf(lifecycle.Unauthorized, op, "pickup %s is not visible to this actor", id)
	}
	return p, nil
}

// Pickups lists pickups visible to actor. Users only see their own, agents
// only those bound to them.
func (e *Engine) Pickups(ctx context.Context, actor lifecycle.Actor, f store.PickupFilter) ([]models.PickupRequest, error) {
	const op = "pickup.list"
	switch a := actor.(type) {
	case lifecycle.User:
		f.UserID = a.ID
	case lifecycle.Agent:
		f.AgentID = a.ID
	case lifecycle.Admin:
	default:
		return nil, lifecycle.Errorf(lifecycle.Unauthorized, op, "unknown actor")
	}

	var out []models.PickupRequest
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = e.store.ListPickups(ctx, f)
		return err
	})
	return out, err
}

func (e *Engine) load(ctx context.Context, op, id string) (models.PickupRequest, error) {
	var p models.PickupRequest
	err := e.run(ctx, op, func(ctx context.Context) error {
		var err error
		p, err = e.store.GetPickup(ctx, id)
		return err
	})
	return p, err
}

// Transition applies ev to pickup id on behalf of actor and persists the
// result. Moving into completed runs the completion unit of work.
func (e *Engine) Transition(ctx context.Context, actor lifecycle.Actor, id string, ev lifecycle.Event) (*Outcome, error) {
	out, err := e.transition(ctx, actor, id, ev)
	if err != nil {
		return nil, err
	}
	if ev.Type != lifecycle.EventCollect || !e.opts.AutoComplete {
		return out, nil
	}

	completed, err := retry.Do(ctx, func() (*Outcome, error) {
		return e.transition(ctx, lifecycle.System(), id, lifecycle.Complete())
	})
	if err != nil {
		// The pickup stays collected; an admin can complete it later.
		e.opts.Logger.WithError(err).WithField("pickup_id", id).Warn("automatic completion failed")
		return out, nil
	}
	return completed, nil
}

func (e *Engine) transition(ctx context.Context, actor lifecycle.Actor, id string, ev lifecycle.Event) (*Outcome, error) {
	op := "pickup." + string(ev.Type)

	out, err := e.apply(ctx, op, actor, id, ev)
	e.opts.Recorder.Transition(string(ev.Type), result(err))
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"pickup_id": out.Pickup.ID,
		"user_id":   out.Pickup.UserID,
		"status":    out.Pickup.Status,
	}
	if actor != nil {
		fields["actor_id"] = actor.ActorID()
	}
	e.opts.Logger.WithFields(fields).Info("pickup transitioned")

	e.notifyChanged(ctx, out.Pickup)
	if out.Completion != nil {
		e.notifyCompleted(ctx, *out.Completion)
	}
	return out, nil
}

func (e *Engine) apply(ctx context.Context, op string, actor lifecycle.Actor, id string, ev lifecycle.Event) (*Outcome, error) {
	cur, err := e.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	next, err := lifecycle.ApplyTransition(cur, ev, actor, now)
	if err != nil {
		return nil, err
	}

	if next.Status == models.StatusCompleted {
		c, err := e.complete(ctx, op, cur.Version, next, now)
		if err != nil {
			return nil, err
		}
		return &Outcome{Pickup: c.Pickup, Completion: c}, nil
	}

	var saved models.PickupRequest
	err = e.run(ctx, op, func(ctx context.Context) error {
		var err error
		saved, err = e.store.UpdatePickup(ctx, next, cur.Version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Pickup: saved}, nil
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return lifecycle.KindOf(err).String()
}
