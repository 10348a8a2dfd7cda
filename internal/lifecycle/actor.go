package lifecycle

import (
	"fmt"

	"recycle-pickup-api-server/internal/models"
)

// Actor is the authenticated caller of a lifecycle operation. The set of
// implementations is closed: User, Agent and Admin.
type Actor interface {
	ActorID() string
	Role() string
	sealed()
}

type User struct{ ID string }

type Agent struct{ ID string }

type Admin struct{ ID string }

func (u User) ActorID() string  { return u.ID }
func (a Agent) ActorID() string { return a.ID }
func (a Admin) ActorID() string { return a.ID }

func (User) Role() string  { return models.RoleUser }
func (Agent) Role() string { return models.RoleAgent }
func (Admin) Role() string { return models.RoleAdmin }

func (User) sealed()  {}
func (Agent) sealed() {}
func (Admin) sealed() {}

// System is the actor used for system-triggered completions.
func System() Actor { return Admin{ID: "system"} }

// NewActor builds an Actor from an identity pair supplied by the auth layer.
func NewActor(id, role string) (Actor, error) {
	if id == "" {
		return nil, fmt.Errorf("empty actor id")
	}
	switch role {
	case models.RoleUser:
		return User{ID: id}, nil
	case models.RoleAgent:
		return Agent{ID: id}, nil
	case models.RoleAdmin:
		return Admin{ID: id}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
}
