package impact

import (
	"testing"

	"recycle-pickup-api-server/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScore_ReferenceWeights(t *testing.T) {
	w := DefaultWeights()
	// 3*10 + 12.5*2 + 100*0.5 + 4*5
	score := w.Score(3, dec("12.5"), dec("100"), dec("4"))
	assert.True(t, score.Equal(dec("125")), "score = %s", score)
}

func TestScore_ZeroMetrics(t *testing.T) {
	assert.True(t, DefaultWeights().Score(0, decimal.Zero, decimal.Zero, decimal.Zero).IsZero())
}

func TestScore_Linear(t *testing.T) {
	w := DefaultWeights()
	a := w.Score(2, dec("10"), dec("40"), dec("3"))
	b := w.Score(5, dec("7.25"), dec("12"), dec("1.5"))
	sum := w.Score(7, dec("17.25"), dec("52"), dec("4.5"))
	assert.True(t, a.Add(b).Equal(sum), "%s + %s != %s", a, b, sum)
}

func TestScore_OrderIndependent(t *testing.T) {
	// Swapping two inputs together with their weights leaves the total unchanged.
	w := Weights{Pickup: dec("10"), Weight: dec("2"), Donation: dec("0.5"), CO2: dec("5")}
	swapped := Weights{Pickup: dec("10"), Weight: dec("5"), Donation: dec("0.5"), CO2: dec("2")}

	original := w.Score(4, dec("8"), dec("30"), dec("6"))
	permuted := swapped.Score(4, dec("6"), dec("30"), dec("8"))
	assert.True(t, original.Equal(permuted), "%s != %s", original, permuted)
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(config.ScoreWeights{Pickup: 1, Weight: 0, Donation: 0.25, CO2: 0})
	score := w.Score(4, dec("100"), dec("8"), dec("100"))
	assert.True(t, score.Equal(dec("6")), "score = %s", score)
}
