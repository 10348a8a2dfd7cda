package lifecycle

import "github.com/shopspring/decimal"

type EventType string

const (
	EventAssign   EventType = "assign"
	EventStart    EventType = "start"
	EventCollect  EventType = "collect"
	EventComplete EventType = "complete"
	EventCancel   EventType = "cancel"
)

// Event is a requested transition plus its payload.
type Event struct {
	Type EventType

	// AgentID is required by assign.
	AgentID string

	// ActualWeights overrides the estimate per material index on collect.
	// Materials without an entry fall back to their estimated weight.
	ActualWeights map[int]decimal.Decimal
	EvidenceRef   string

	Reason string
}

func Assign(agentID string) Event { return Event{Type: EventAssign, AgentID: agentID} }

func Start() Event { return Event{Type: EventStart} }

func Collect(weights map[int]decimal.Decimal, evidenceRef string) Event {
	return Event{Type: EventCollect, ActualWeights: weights, EvidenceRef: evidenceRef}
}

func Complete() Event { return Event{Type: EventComplete} }

func Cancel(reason string) Event { return Event{Type: EventCancel, Reason: reason} }
