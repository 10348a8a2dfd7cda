// Package lifecycle implements the pickup state machine:
//
//	scheduled -> assigned -> in-progress -> collected -> completed
//	scheduled | assigned -> cancelled
//
// ApplyTransition is pure. Persisting the result, and the side effects of
// completion, belong to the engine.
package lifecycle

import (
	"time"

	"recycle-pickup-api-server/internal/models"
)

// source lists the single state each event may leave from. Cancel is handled
// separately because it has two sources.
var source = map[EventType]models.PickupStatus{
	EventAssign:   models.StatusScheduled,
	EventStart:    models.StatusAssigned,
	EventCollect:  models.StatusInProgress,
	EventComplete: models.StatusCollected,
}

// Target returns the status an event moves a pickup into.
func Target(t EventType) (models.PickupStatus, bool) {
	switch t {
	case EventAssign:
		return models.StatusAssigned, true
	case EventStart:
		return models.StatusInProgress, true
	case EventCollect:
		return models.StatusCollected, true
	case EventComplete:
		return models.StatusCompleted, true
	case EventCancel:
		return models.StatusCancelled, true
	}
	return "", false
}

// ApplyTransition validates ev against p's current state and actor, and
// returns the updated copy. p is never modified. Checks run in a fixed order:
// state, then actor, then payload.
func ApplyTransition(p models.PickupRequest, ev Event, actor Actor, now time.Time) (models.PickupRequest, error) {
	op := "pickup." + string(ev.Type)

	if err := checkState(p.Status, ev.Type, op); err != nil {
		return p, err
	}
	if err := authorize(p, ev.Type, actor, op); err != nil {
		return p, err
	}

	next := p.Clone()
	ts := now
	switch ev.Type {
	case EventAssign:
		if ev.AgentID == "" {
			return p, Errorf(ValidationFailure, op, "agent id is required")
		}
		next.AgentID = ev.AgentID
		next.AssignedAt = &ts
	case EventStart:
		next.StartedAt = &ts
	case EventCollect:
		if err := recordWeights(&next, ev, op); err != nil {
			return p, err
		}
		if ev.EvidenceRef != "" {
			next.EvidenceRef = ev.EvidenceRef
		}
		next.CollectedAt = &ts
	case EventComplete:
		next.CompletedAt = &ts
	case EventCancel:
		next.CancelReason = ev.Reason
		next.CancelledAt = &ts
	}

	next.Status, _ = Target(ev.Type)
	next.UpdatedAt = now
	return next, nil
}

func checkState(status models.PickupStatus, t EventType, op string) error {
	if status.Terminal() {
		return Errorf(InvalidState, op, "pickup is already %s", status)
	}
	if t == EventCancel {
		switch status {
		case models.StatusScheduled, models.StatusAssigned:
			return nil
		default:
			return Errorf(InvalidState, op, "cannot cancel a pickup that is %s", status)
		}
	}
	from, ok := source[t]
	if !ok {
		return Errorf(InvalidTransition, op, "unknown event %q", t)
	}
	if status != from {
		return Errorf(InvalidTransition, op, "cannot %s a pickup that is %s", t, status)
	}
	return nil
}

func authorize(p models.PickupRequest, t EventType, actor Actor, op string) error {
	allowed := false
	switch a := actor.(type) {
	case Admin:
		allowed = t == EventAssign || t == EventComplete || t == EventCancel
	case Agent:
		allowed = (t == EventStart || t == EventCollect) && p.AgentID != "" && a.ID == p.AgentID
	case User:
		allowed = t == EventCancel && a.ID == p.UserID
	}
	if !allowed {
		return Errorf(Unauthorized, op, "actor is not allowed to %s this pickup", t)
	}
	return nil
}

// recordWeights sets ActualWeight on every material, using the explicit
// override when given and the estimate otherwise.
func recordWeights(p *models.PickupRequest, ev Event, op string) error {
	for idx, w := range ev.ActualWeights {
		if idx < 0 || idx >= len(p.Materials) {
			return Errorf(ValidationFailure, op, "material index %d out of range", idx)
		}
		if w.IsNegative() {
			return Errorf(ValidationFailure, op, "material %d has a negative weight", idx)
		}
	}
	for i := range p.Materials {
		w := p.Materials[i].EstimatedWeight
		if override, ok := ev.ActualWeights[i]; ok {
			w = override
		}
		p.Materials[i].ActualWeight = &w
	}
	return nil
}
