package lifecycle

import (
	"errors"
	"testing"
	"time"

	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = User{ID: "user-1"}
	other = User{ID: "user-2"}
	agent = Agent{ID: "agent-1"}
	rogue = Agent{ID: "agent-2"}
	admin = Admin{ID: "admin-1"}
	now   = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
)

func newPickup(status models.PickupStatus) models.PickupRequest {
	p := models.PickupRequest{
		ID:     "PU-1",
		UserID: owner.ID,
		Materials: []models.Material{
			{Type: models.MaterialMetal, EstimatedWeight: decimal.NewFromInt(10)},
			{Type: models.MaterialPaper, EstimatedWeight: decimal.NewFromInt(4)},
		},
		Status:  status,
		NGOID:   "ngo-1",
		Version: 3,
	}
	if status != models.StatusScheduled {
		p.AgentID = agent.ID
	}
	return p
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestApplyTransition_HappyPath(t *testing.T) {
	p := newPickup(models.StatusScheduled)
	p.AgentID = ""

	p, err := ApplyTransition(p, Assign(agent.ID), admin, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, p.Status)
	assert.Equal(t, agent.ID, p.AgentID)
	require.NotNil(t, p.AssignedAt)

	p, err = ApplyTransition(p, Start(), agent, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, p.Status)
	require.NotNil(t, p.StartedAt)

	for _, m := range p.Materials {
		assert.Nil(t, m.ActualWeight, "actual weight must stay unset before collection")
	}

	p, err = ApplyTransition(p, Collect(map[int]decimal.Decimal{0: decimal.RequireFromString("12.5")}, "s3://evidence/1.jpg"), agent, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCollected, p.Status)
	require.NotNil(t, p.Materials[0].ActualWeight)
	require.NotNil(t, p.Materials[1].ActualWeight)
	assert.Equal(t, "12.5", p.Materials[0].ActualWeight.String())
	assert.Equal(t, "4", p.Materials[1].ActualWeight.String())
	assert.Equal(t, "s3://evidence/1.jpg", p.EvidenceRef)

	p, err = ApplyTransition(p, Complete(), System(), now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, now.Add(3*time.Hour), p.UpdatedAt)
}

func TestApplyTransition_DoesNotMutateInput(t *testing.T) {
	p := newPickup(models.StatusInProgress)
	_, err := ApplyTransition(p, Collect(map[int]decimal.Decimal{1: decimal.NewFromInt(7)}, ""), agent, now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, p.Status)
	assert.Nil(t, p.Materials[0].ActualWeight)
	assert.Nil(t, p.Materials[1].ActualWeight)
	assert.Nil(t, p.CollectedAt)
}

func TestApplyTransition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status models.PickupStatus
		event  Event
		actor  Actor
	}{
		{"CollectFromScheduled", models.StatusScheduled, Collect(nil, ""), agent},
		{"CompleteFromScheduled", models.StatusScheduled, Complete(), admin},
		{"StartFromScheduled", models.StatusScheduled, Start(), agent},
		{"AssignTwice", models.StatusAssigned, Assign("agent-9"), admin},
		{"CompleteFromInProgress", models.StatusInProgress, Complete(), admin},
		{"UnknownEvent", models.StatusScheduled, Event{Type: "teleport"}, admin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPickup(tt.status)
			got, err := ApplyTransition(p, tt.event, tt.actor, now)
			requireKind(t, err, InvalidTransition)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestApplyTransition_TerminalStates(t *testing.T) {
	events := []Event{Assign(agent.ID), Start(), Collect(nil, ""), Complete(), Cancel("late")}
	for _, status := range []models.PickupStatus{models.StatusCompleted, models.StatusCancelled} {
		for _, ev := range events {
			t.Run(string(status)+"/"+string(ev.Type), func(t *testing.T) {
				_, err := ApplyTransition(newPickup(status), ev, admin, now)
				requireKind(t, err, InvalidState)
			})
		}
	}
}

func TestApplyTransition_Cancel(t *testing.T) {
	t.Run("OwnerFromScheduled", func(t *testing.T) {
		p, err := ApplyTransition(newPickup(models.StatusScheduled), Cancel("moved house"), owner, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, p.Status)
		assert.Equal(t, "moved house", p.CancelReason)
		require.NotNil(t, p.CancelledAt)
	})

	t.Run("AdminFromAssigned", func(t *testing.T) {
		p, err := ApplyTransition(newPickup(models.StatusAssigned), Cancel(""), admin, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, p.Status)
	})

	t.Run("InProgressIsInvalidState", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusInProgress), Cancel(""), owner, now)
		requireKind(t, err, InvalidState)
	})

	t.Run("CollectedIsInvalidState", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusCollected), Cancel(""), admin, now)
		requireKind(t, err, InvalidState)
	})

	t.Run("OtherUserUnauthorized", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusScheduled), Cancel(""), other, now)
		requireKind(t, err, Unauthorized)
	})

	t.Run("AgentUnauthorized", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusAssigned), Cancel(""), agent, now)
		requireKind(t, err, Unauthorized)
	})
}

func TestApplyTransition_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		status models.PickupStatus
		event  Event
		actor  Actor
	}{
		{"UserCannotAssign", models.StatusScheduled, Assign(agent.ID), owner},
		{"AgentCannotAssign", models.StatusScheduled, Assign(agent.ID), agent},
		{"OtherAgentCannotStart", models.StatusAssigned, Start(), rogue},
		{"AdminCannotStart", models.StatusAssigned, Start(), admin},
		{"OwnerCannotCollect", models.StatusInProgress, Collect(nil, ""), owner},
		{"OtherAgentCannotCollect", models.StatusInProgress, Collect(nil, ""), rogue},
		{"AgentCannotComplete", models.StatusCollected, Complete(), agent},
		{"NilActor", models.StatusCollected, Complete(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyTransition(newPickup(tt.status), tt.event, tt.actor, now)
			requireKind(t, err, Unauthorized)
		})
	}
}

func TestApplyTransition_Validation(t *testing.T) {
	t.Run("AssignWithoutAgent", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusScheduled), Assign(""), admin, now)
		requireKind(t, err, ValidationFailure)
	})

	t.Run("CollectIndexOutOfRange", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusInProgress),
			Collect(map[int]decimal.Decimal{5: decimal.NewFromInt(1)}, ""), agent, now)
		requireKind(t, err, ValidationFailure)
	})

	t.Run("CollectNegativeWeight", func(t *testing.T) {
		_, err := ApplyTransition(newPickup(models.StatusInProgress),
			Collect(map[int]decimal.Decimal{0: decimal.NewFromInt(-1)}, ""), agent, now)
		requireKind(t, err, ValidationFailure)
	})
}

func TestError_Chain(t *testing.T) {
	base := errors.New("socket closed")
	err := Wrap(PersistenceTimeout, "pickup.load", base)

	assert.True(t, errors.Is(err, base))
	assert.Equal(t, PersistenceTimeout, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "pickup.load: persistence_timeout: socket closed", err.Error())

	assert.False(t, IsRetryable(Errorf(InvalidState, "op", "done")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestNewActor(t *testing.T) {
	a, err := NewActor("u", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u"}, a)

	a, err = NewActor("g", models.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, Agent{ID: "g"}, a)

	a, err = NewActor("d", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, a.Role())

	_, err = NewActor("x", "superadmin")
	assert.Error(t, err)
	_, err = NewActor("", models.RoleUser)
	assert.Error(t, err)
}
