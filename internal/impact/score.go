package impact

import (
	"recycle-pickup-api-server/config"

	"github.com/shopspring/decimal"
)

// Weights are the per-dimension multipliers of the impact score.
type Weights struct {
	Pickup   decimal.Decimal
	Weight   decimal.Decimal
	Donation decimal.Decimal
	CO2      decimal.Decimal
}

// DefaultWeights is the reference configuration.
func DefaultWeights() Weights {
	return Weights{
		Pickup:   decimal.NewFromInt(10),
		Weight:   decimal.NewFromInt(2),
		Donation: decimal.RequireFromString("0.5"),
		CO2:      decimal.NewFromInt(5),
	}
}

func WeightsFromConfig(cfg config.ScoreWeights) Weights {
	return Weights{
		Pickup:   decimal.NewFromFloat(cfg.Pickup),
		Weight:   decimal.NewFromFloat(cfg.Weight),
		Donation: decimal.NewFromFloat(cfg.Donation),
		CO2:      decimal.NewFromFloat(cfg.CO2),
	}
}

// Score computes pickups*Wp + weight*Ww + donations*Wd + co2*Wc.
func (w Weights) Score(pickups int64, weight, donations, co2 decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(pickups).Mul(w.Pickup).
		Add(weight.Mul(w.Weight)).
		Add(donations.Mul(w.Donation)).
		Add(co2.Mul(w.CO2)).
		Round(MoneyPlaces)
}
