package badge

import (
	"sort"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
)

// Evaluator awards catalogue badges whose threshold a user's metrics reach.
type Evaluator struct {
	catalog []models.Badge
}

// NewEvaluator copies the catalogue and orders it by tier, then id, so
// awards come out in a stable order.
func NewEvaluator(catalog []models.Badge) *Evaluator {
	c := append([]models.Badge(nil), catalog...)
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Tier != c[j].Tier {
			return c[i].Tier < c[j].Tier
		}
		return c[i].ID < c[j].ID
	})
	return &Evaluator{catalog: c}
}

// CatalogFromConfig converts configured badge definitions, skipping entries
// with an unknown criterion or an empty id.
func CatalogFromConfig(cfgs []config.BadgeConfig) []models.Badge {
	out := make([]models.Badge, 0, len(cfgs))
	for _, c := range cfgs {
		crit := models.BadgeCriterion(c.Criterion)
		if c.ID == "" || !crit.Valid() {
			continue
		}
		out = append(out, models.Badge{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Criterion:   crit,
			Threshold:   decimal.NewFromFloat(c.Threshold),
			Tier:        c.Tier,
		})
	}
	return out
}

func (e *Evaluator) Catalog() []models.Badge {
	return append([]models.Badge(nil), e.catalog...)
}

// Evaluate returns every badge m qualifies for that m does not already hold.
// Running it again on the same metrics after awarding returns nothing.
func (e *Evaluator) Evaluate(m models.UserImpactMetrics) []models.Badge {
	var out []models.Badge
	for _, b := range e.catalog {
		if m.HasBadge(b.ID) {
			continue
		}
		if Metric(m, b.Criterion).GreaterThanOrEqual(b.Threshold) {
			out = append(out, b)
		}
	}
	return out
}

// EvaluateChanged is Evaluate restricted to badges whose criterion metric
// differs between before and after. Held badges are taken from after.
func (e *Evaluator) EvaluateChanged(before, after models.UserImpactMetrics) []models.Badge {
	var out []models.Badge
	for _, b := range e.catalog {
		if after.HasBadge(b.ID) {
			continue
		}
		cur := Metric(after, b.Criterion)
		if cur.Equal(Metric(before, b.Criterion)) {
			continue
		}
		if cur.GreaterThanOrEqual(b.Threshold) {
			out = append(out, b)
		}
	}
	return out
}

// Award appends badges to m's held set and returns the updated copy.
func Award(m models.UserImpactMetrics, badges []models.Badge, at time.Time) models.UserImpactMetrics {
	out := m.Clone()
	for _, b := range badges {
		if out.HasBadge(b.ID) {
			continue
		}
		out.Badges = append(out.Badges, models.AwardedBadge{BadgeID: b.ID, AwardedAt: at})
	}
	return out
}

// Metric reads the cumulative value a criterion is measured against.
func Metric(m models.UserImpactMetrics, c models.BadgeCriterion) decimal.Decimal {
	switch c {
	case models.CriterionPickups:
		return decimal.NewFromInt(m.TotalPickups)
	case models.CriterionWeight:
		return m.TotalWeight
	case models.CriterionDonations:
		return m.TotalDonationAmount
	case models.CriterionCO2:
		return m.TotalCO2Saved
	}
	return decimal.Zero
}
