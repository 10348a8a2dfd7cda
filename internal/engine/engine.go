// Package engine drives pickups through their lifecycle against a Store and
// runs the completion unit of work: valuation, donation and CSR matching,
// metric accumulation and badge awards, committed together or not at all.
package engine

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/badge"
	"recycle-pickup-api-server/internal/impact"
	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/store"

	"github.com/sirupsen/logrus"
)

// Listener observes committed changes. Calls happen after commit, on the
// request goroutine, with a context that is not cancelled with the request.
// Implementations must not block for long.
type Listener interface {
	PickupChanged(ctx context.Context, p models.PickupRequest)
	PickupCompleted(ctx context.Context, c Completion)
}

// Completion is everything the completion unit wrote.
type Completion struct {
	Pickup          models.PickupRequest
	Donation        models.DonationRecord
	Metrics         models.UserImpactMetrics
	NewBadges       []models.Badge
	BudgetExhausted bool
}

// Recorder receives operational measurements.
type Recorder interface {
	Transition(event, result string)
	Completed(d time.Duration, matched float64)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string)       {}
func (nopRecorder) Completed(time.Duration, float64) {}

type Options struct {
	Calculator impact.Calculator
	Weights    impact.Weights
	Badges     *badge.Evaluator
	Clock      func() time.Time
	// Timeout bounds every store call. Zero means no bound.
	Timeout time.Duration
	// AutoComplete completes a pickup as the system actor right after it is
	// collected.
	AutoComplete bool
	Listeners    []Listener
	Logger       logrus.FieldLogger
	Recorder     Recorder
}

type Engine struct {
	store store.Store
	opts  Options
}

func New(s store.Store, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Badges == nil {
		opts.Badges = badge.NewEvaluator(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Engine{store: s, opts: opts}
}

// AddListener registers l for subsequent changes. It must be called before
// the engine serves requests.
func (e *Engine) AddListener(l Listener) {
	e.opts.Listeners = append(e.opts.Listeners, l)
}

// Badges returns the configured catalogue.
func (e *Engine) Badges() []models.Badge {
	return e.opts.Badges.Catalog()
}

func (e *Engine) now() time.Time { return e.opts.Clock() }

// run executes fn under the store timeout and maps store errors to lifecycle
// kinds.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return store.Bounded(ctx, e.opts.Timeout, op, fn)
}

func (e *Engine) notifyChanged(ctx context.Context, p models.PickupRequest) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range e.opts.Listeners {
		l.PickupChanged(ctx, p)
	}
}

func (e *Engine) notifyCompleted(ctx context.Context, c Completion) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range e.opts.Listeners {
		l.PickupCompleted(ctx, c)
	}
}

func canView(actor lifecycle.Actor, p models.PickupRequest) bool {
	switch a := actor.(type) {
	case lifecycle.Admin:
		return true
	case lifecycle.Agent:
		return p.AgentID != "" && p.AgentID == a.ID
	case lifecycle.User:
		return p.UserID == a.ID
	}
	return false
}
