package pricing

import (
	"errors"
	"math"

	"masar/internal/modules/location"
	"masar/internal/modules/tariff"
	"masar/internal/types"
)

var ErrInvalidWeight = errors.New("weight must be a non-negative number")

// SplitFee applies the platform commission to a gross price. The fee is
// rounded half up to the baisa and the driver receives the remainder, so the
// two parts always sum to the total.
func SplitFee(total types.Money, pct types.Percent) (fee, driver types.Money) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100*types.PercentScale {
		pct = 100 * types.PercentScale
	}
	fee = pct.Of(total)
	return fee, total.Sub(fee)
}

// Quote prices a shipment against a snapshot. It has no side effects and
// reads no state beyond its arguments.
func Quote(snap Snapshot, req QuoteRequest) (Breakdown, error) {
	if math.IsNaN(req.WeightKg) || math.IsInf(req.WeightKg, 0) || req.WeightKg < 0 {
		return Breakdown{}, ErrInvalidWeight
	}
	distance := location.RoundKm(location.DistanceKm(req.Pickup, req.Delivery))
	weight := roundHundredths(req.WeightKg)

	rule, err := tariff.NewTable(snap.Rules).Resolve(distance, weight)
	if err != nil {
		return Breakdown{}, err
	}
	fee, driver := SplitFee(rule.Price, snap.Settings.PlatformFee)
	return Breakdown{
		DistanceKm:         distance,
		WeightKg:           weight,
		TotalPrice:         rule.Price,
		PlatformFeePercent: snap.Settings.PlatformFee,
		PlatformFee:        fee,
		DriverAmount:       driver,
		TariffRuleID:       rule.ID,
	}, nil
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
