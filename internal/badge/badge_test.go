package badge

import (
	"testing"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []models.Badge {
	return CatalogFromConfig([]config.BadgeConfig{
		{ID: "first-steps", Name: "First Steps", Criterion: "pickups", Threshold: 1, Tier: 1},
		{ID: "regular-recycler", Name: "Regular Recycler", Criterion: "pickups", Threshold: 10, Tier: 2},
		{ID: "heavy-lifter", Name: "Heavy Lifter", Criterion: "weight", Threshold: 100, Tier: 1},
		{ID: "generous-giver", Name: "Generous Giver", Criterion: "donations", Threshold: 500, Tier: 2},
		{ID: "climate-guardian", Name: "Climate Guardian", Criterion: "co2", Threshold: 100, Tier: 2},
	})
}

func ids(badges []models.Badge) []string {
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		out = append(out, b.ID)
	}
	return out
}

func TestCatalogFromConfig_SkipsInvalid(t *testing.T) {
	got := CatalogFromConfig([]config.BadgeConfig{
		{ID: "ok", Criterion: "co2", Threshold: 1.5},
		{ID: "bad", Criterion: "karma", Threshold: 1},
		{ID: "", Criterion: "pickups", Threshold: 1},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, "1.5", got[0].Threshold.String())
}

func TestEvaluate_FirstSteps(t *testing.T) {
	e := NewEvaluator(testCatalog())
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	before := models.UserImpactMetrics{UserID: "u1"}
	after := before.Clone()
	after.TotalPickups = 1

	awarded := e.EvaluateChanged(before, after)
	assert.Equal(t, []string{"first-steps"}, ids(awarded))

	after = Award(after, awarded, at)
	require.True(t, after.HasBadge("first-steps"))

	// A second pickup does not re-award it.
	next := after.Clone()
	next.TotalPickups = 2
	assert.Empty(t, e.EvaluateChanged(after, next))
	assert.Empty(t, e.Evaluate(next))
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := NewEvaluator(testCatalog())
	m := models.UserImpactMetrics{
		UserID:              "u1",
		TotalPickups:        12,
		TotalWeight:         decimal.NewFromInt(150),
		TotalDonationAmount: decimal.NewFromInt(20),
		TotalCO2Saved:       decimal.NewFromInt(100),
	}

	first := e.Evaluate(m)
	assert.ElementsMatch(t, []string{"first-steps", "regular-recycler", "heavy-lifter", "climate-guardian"}, ids(first))
	assert.Equal(t, ids(first), ids(e.Evaluate(m)), "same metrics give the same result")

	m = Award(m, first, time.Now())
	assert.Empty(t, e.Evaluate(m))

	m = Award(m, first, time.Now())
	assert.Len(t, m.Badges, 4, "awarding twice never duplicates")
}

func TestEvaluateChanged_SkipsUnchangedMetrics(t *testing.T) {
	e := NewEvaluator(testCatalog())

	// Weight already qualified but never evaluated; only pickups moved.
	before := models.UserImpactMetrics{TotalPickups: 3, TotalWeight: decimal.NewFromInt(200)}
	after := before
	after.TotalPickups = 4

	assert.Equal(t, []string{"first-steps"}, ids(e.EvaluateChanged(before, after)))
	assert.ElementsMatch(t, []string{"first-steps", "heavy-lifter"}, ids(e.Evaluate(after)))
}

func TestEvaluate_OrderIsStable(t *testing.T) {
	e := NewEvaluator(testCatalog())
	m := models.UserImpactMetrics{
		TotalPickups:        10,
		TotalWeight:         decimal.NewFromInt(100),
		TotalDonationAmount: decimal.NewFromInt(500),
		TotalCO2Saved:       decimal.NewFromInt(100),
	}
	assert.Equal(t,
		[]string{"first-steps", "heavy-lifter", "climate-guardian", "generous-giver", "regular-recycler"},
		ids(e.Evaluate(m)))
}

func TestMetric(t *testing.T) {
	m := models.UserImpactMetrics{
		TotalPickups:        3,
		TotalWeight:         decimal.RequireFromString("4.5"),
		TotalDonationAmount: decimal.RequireFromString("6.25"),
		TotalCO2Saved:       decimal.RequireFromString("7.125"),
	}
	assert.Equal(t, "3", Metric(m, models.CriterionPickups).String())
	assert.Equal(t, "4.5", Metric(m, models.CriterionWeight).String())
	assert.Equal(t, "6.25", Metric(m, models.CriterionDonations).String())
	assert.Equal(t, "7.125", Metric(m, models.CriterionCO2).String())
	assert.True(t, Metric(m, "other").IsZero())
}
