// Package leaderboard ranks users by impact score over a time window. It is
// read-only and runs concurrently with completions; a ranking reflects the
// completions committed when it was computed.
package leaderboard

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"recycle-pickup-api-server/internal/impact"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Source lists pickups; store.Store satisfies it.
type Source interface {
	ListPickups(ctx context.Context, f store.PickupFilter) ([]models.PickupRequest, error)
}

// Cache stores computed rankings. Implementations drop every entry when a
// pickup completes. Get reports the generation it looked in; Set must write
// under that generation so a ranking computed before an invalidation is never
// visible after it.
type Cache interface {
	Get(ctx context.Context, key string) (entries []Entry, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, key string, entries []Entry) error
}

type Entry struct {
	Rank           int             `json:"rank"`
	UserID         string          `json:"userID"`
	Score          decimal.Decimal `json:"score"`
	TotalPickups   int64           `json:"totalPickups"`
	TotalWeight    decimal.Decimal `json:"totalWeight"`
	TotalDonations decimal.Decimal `json:"totalDonations"`
	TotalCO2       decimal.Decimal `json:"totalCO2"`
	FirstActivity  time.Time       `json:"firstActivity"`
}

// Ranking is an ordered, immutable result. All can be ranged over any number
// of times.
type Ranking struct {
	Period Period    `json:"period"`
	Scope  string    `json:"scope"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`

	entries []Entry
}

func (r *Ranking) Len() int { return len(r.entries) }

// All yields (rank, entry) pairs in rank order.
func (r *Ranking) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for _, e := range r.entries {
			if !yield(e.Rank, e) {
				return
			}
		}
	}
}

// Page returns at most limit entries starting at offset. A non-positive
// limit returns everything from offset.
func (r *Ranking) Page(offset, limit int) []Entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.entries) {
		return []Entry{}
	}
	end := len(r.entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]Entry(nil), r.entries[offset:end]...)
}

type Aggregator struct {
	source  Source
	weights impact.Weights
	loc     *time.Location
	now     func() time.Time
	cache   Cache
	timeout time.Duration
	log     logrus.FieldLogger
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

func WithCache(c Cache) Option { return func(a *Aggregator) { a.cache = c } }

// WithTimeout bounds the store read behind a ranking.
func WithTimeout(d time.Duration) Option { return func(a *Aggregator) { a.timeout = d } }

func WithLogger(l logrus.FieldLogger) Option { return func(a *Aggregator) { a.log = l } }

func NewAggregator(src Source, weights impact.Weights, loc *time.Location, opts ...Option) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	a := &Aggregator{
		source:  src,
		weights: weights,
		loc:     loc,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rank computes the ranking for period and scope. Users are ordered by score
// descending, then by earliest qualifying completion, then by user id.
func (a *Aggregator) Rank(ctx context.Context, period Period, scope Scope) (*Ranking, error) {
	start, end := Window(period, a.now(), a.loc)
	r := &Ranking{Period: period, Scope: scope.String(), Start: start, End: end}

	key := fmt.Sprintf("%s:%s:%d", period, scope, start.Unix())
	var gen int64
	cacheable := false
	if a.cache != nil {
		entries, g, ok, err := a.cache.Get(ctx, key)
		switch {
		case err != nil:
			a.log.WithError(err).WithField("key", key).Warn("leaderboard cache read failed")
		case ok:
			r.entries = entries
			return r, nil
		default:
			gen, cacheable = g, true
		}
	}

	var pickups []models.PickupRequest
	err := store.Bounded(ctx, a.timeout, "leaderboard.rank", func(ctx context.Context) error {
		var err error
		pickups, err = a.source.ListPickups(ctx, store.PickupFilter{
			Status:        models.StatusCompleted,
			CommunityID:   scope.CommunityID,
			CompletedFrom: start,
			CompletedTo:   end,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	r.entries = a.aggregate(pickups)

	if cacheable {
		if err := a.cache.Set(ctx, gen, key, r.entries); err != nil {
			a.log.WithError(err).WithField("key", key).Warn("leaderboard cache write failed")
		}
	}
	return r, nil
}

func (a *Aggregator) aggregate(pickups []models.PickupRequest) []Entry {
	byUser := make(map[string]*Entry)
	for _, p := range pickups {
		if p.Settlement == nil || p.CompletedAt == nil {
			continue
		}
		e, ok := byUser[p.UserID]
		if !ok {
			e = &Entry{
				UserID:         p.UserID,
				TotalWeight:    decimal.Zero,
				TotalDonations: decimal.Zero,
				TotalCO2:       decimal.Zero,
				FirstActivity:  *p.CompletedAt,
			}
			byUser[p.UserID] = e
		}
		e.TotalPickups++
		e.TotalWeight = e.TotalWeight.Add(p.Settlement.TotalWeight)
		e.TotalDonations = e.TotalDonations.Add(p.Settlement.DonationTotal)
		e.TotalCO2 = e.TotalCO2.Add(p.Settlement.CO2Saved)
		if p.CompletedAt.Before(e.FirstActivity) {
			e.FirstActivity = *p.CompletedAt
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		e.Score = a.weights.Score(e.TotalPickups, e.TotalWeight, e.TotalDonations, e.TotalCO2)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Score.Cmp(entries[j].Score); c != 0 {
			return c > 0
		}
		if !entries[i].FirstActivity.Equal(entries[j].FirstActivity) {
			return entries[i].FirstActivity.Before(entries[j].FirstActivity)
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
