// Package impact holds the pure valuation and scoring functions used when a
// pickup is completed and when leaderboards are computed.
package impact

import (
	"recycle-pickup-api-server/internal/models"

	"github.com/shopspring/decimal"
)

// Rounding policy: money is kept in the currency's minor unit (2 places) and
// CO2 to the gram (3 places of kg). Both round half away from zero.
const (
	MoneyPlaces int32 = 2
	CO2Places   int32 = 3
)

// RateTable maps a material type to a per-kg factor.
type RateTable map[models.MaterialType]decimal.Decimal

// NewRateTable converts a config map into a RateTable. Keys outside the
// material enumeration are dropped.
func NewRateTable(raw map[string]float64) RateTable {
	table := make(RateTable, len(raw))
	for k, v := range raw {
		t := models.MaterialType(k)
		if !t.Valid() {
			continue
		}
		table[t] = decimal.NewFromFloat(v)
	}
	return table
}

// Calculator turns material weights into monetary value and CO2 savings.
type Calculator struct {
	Rates      RateTable
	CO2Factors RateTable
}

func NewCalculator(rates, co2Factors RateTable) Calculator {
	return Calculator{Rates: rates, CO2Factors: co2Factors}
}

// Compute sums weight*rate and weight*co2Factor over materials. Unknown types
// contribute nothing.
func (c Calculator) Compute(materials []models.Material) (value, co2Saved decimal.Decimal) {
	value = decimal.Zero
	co2Saved = decimal.Zero
	for _, m := range materials {
		w := EffectiveWeight(m)
		if rate, ok := c.Rates[m.Type]; ok {
			value = value.Add(w.Mul(rate))
		}
		if factor, ok := c.CO2Factors[m.Type]; ok {
			co2Saved = co2Saved.Add(w.Mul(factor))
		}
	}
	return value.Round(MoneyPlaces), co2Saved.Round(CO2Places)
}

// EffectiveWeight is the actual weight when recorded, otherwise the estimate.
// Negative weights count as zero.
func EffectiveWeight(m models.Material) decimal.Decimal {
	w := m.EstimatedWeight
	if m.ActualWeight != nil {
		w = *m.ActualWeight
	}
	if w.IsNegative() {
		return decimal.Zero
	}
	return w
}

// TotalWeight is the sum of effective weights.
func TotalWeight(materials []models.Material) decimal.Decimal {
	total := decimal.Zero
	for _, m := range materials {
		total = total.Add(EffectiveWeight(m))
	}
	return total
}
