package impact

import (
	"math/rand"
	"testing"

	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func testCalculator() Calculator {
	return NewCalculator(
		NewRateTable(map[string]float64{"paper": 2, "plastic": 8, "metal": 25, "glass": 3, "electronics": 40, "mixed": 4}),
		NewRateTable(map[string]float64{"paper": 1.1, "plastic": 1.5, "metal": 2.0, "glass": 0.3, "electronics": 3.5, "mixed": 0.8}),
	)
}

func TestCompute_MetalScenario(t *testing.T) {
	c := testCalculator()
	value, co2 := c.Compute([]models.Material{
		{Type: models.MaterialMetal, ActualWeight: ptr(dec("10"))},
	})
	assert.True(t, value.Equal(dec("250")), "value = %s", value)
	assert.True(t, co2.Equal(dec("20")), "co2 = %s", co2)
}

func TestCompute_WeightFallbacks(t *testing.T) {
	c := testCalculator()

	t.Run("ActualOverridesEstimate", func(t *testing.T) {
		value, _ := c.Compute([]models.Material{
			{Type: models.MaterialPaper, EstimatedWeight: dec("100"), ActualWeight: ptr(dec("3"))},
		})
		assert.True(t, value.Equal(dec("6")), "value = %s", value)
	})

	t.Run("EstimateWhenNoActual", func(t *testing.T) {
		value, co2 := c.Compute([]models.Material{
			{Type: models.MaterialPlastic, EstimatedWeight: dec("2.5")},
		})
		assert.True(t, value.Equal(dec("20")), "value = %s", value)
		assert.True(t, co2.Equal(dec("3.75")), "co2 = %s", co2)
	})

	t.Run("NeitherSetIsZero", func(t *testing.T) {
		value, co2 := c.Compute([]models.Material{{Type: models.MaterialGlass}})
		assert.True(t, value.IsZero())
		assert.True(t, co2.IsZero())
	})

	t.Run("UnknownTypeContributesNothing", func(t *testing.T) {
		value, co2 := c.Compute([]models.Material{
			{Type: "uranium", EstimatedWeight: dec("50")},
			{Type: models.MaterialMetal, EstimatedWeight: dec("1")},
		})
		assert.True(t, value.Equal(dec("25")), "value = %s", value)
		assert.True(t, co2.Equal(dec("2")), "co2 = %s", co2)
	})

	t.Run("EmptyList", func(t *testing.T) {
		value, co2 := c.Compute(nil)
		assert.True(t, value.IsZero())
		assert.True(t, co2.IsZero())
	})
}

func TestCompute_Rounding(t *testing.T) {
	c := NewCalculator(
		RateTable{models.MaterialPaper: dec("0.333")},
		RateTable{models.MaterialPaper: dec("0.0001")},
	)
	value, co2 := c.Compute([]models.Material{{Type: models.MaterialPaper, EstimatedWeight: dec("1.5")}})
	// 0.4995 -> 0.50, 0.00015 -> 0.000
	assert.Equal(t, "0.5", value.String())
	assert.Equal(t, "0", co2.String())
}

func TestCompute_MonotonicInWeight(t *testing.T) {
	c := testCalculator()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(5)
		materials := make([]models.Material, n)
		for j := range materials {
			materials[j] = models.Material{
				Type:            models.MaterialTypes[rng.Intn(len(models.MaterialTypes))],
				EstimatedWeight: decimal.NewFromFloat(rng.Float64() * 50).Round(2),
			}
		}
		baseValue, baseCO2 := c.Compute(materials)

		bumped := make([]models.Material, n)
		copy(bumped, materials)
		k := rng.Intn(n)
		bumped[k].EstimatedWeight = bumped[k].EstimatedWeight.Add(decimal.NewFromFloat(rng.Float64() * 10).Round(2))
		value, co2 := c.Compute(bumped)

		assert.True(t, value.GreaterThanOrEqual(baseValue), "value decreased: %s -> %s", baseValue, value)
		assert.True(t, co2.GreaterThanOrEqual(baseCO2), "co2 decreased: %s -> %s", baseCO2, co2)
	}
}

func TestNewRateTable_DropsUnknownKeys(t *testing.T) {
	table := NewRateTable(map[string]float64{"metal": 25, "gold": 1000})
	assert.Len(t, table, 1)
	assert.True(t, table[models.MaterialMetal].Equal(dec("25")))
}

func TestTotalWeight(t *testing.T) {
	total := TotalWeight([]models.Material{
		{Type: models.MaterialPaper, EstimatedWeight: dec("4"), ActualWeight: ptr(dec("5.5"))},
		{Type: models.MaterialGlass, EstimatedWeight: dec("2")},
		{Type: models.MaterialMetal, EstimatedWeight: dec("-3")},
	})
	assert.True(t, total.Equal(dec("7.5")), "total = %s", total)
}
