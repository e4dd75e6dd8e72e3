// README: Tariff rules bind a price to an inclusive distance range and weight range.
package tariff

import (
	"errors"
	"fmt"

	"masar/internal/types"
)

var (
	ErrNoPricingRuleFound = errors.New("no pricing rule found")
	ErrInvalidRule        = errors.New("invalid tariff rule")
	ErrOverlappingRules   = errors.New("overlapping tariff rules")
)

type Rule struct {
	ID            int64       `json:"id"`
	MinDistanceKm float64     `json:"min_distance_km"`
	MaxDistanceKm float64     `json:"max_distance_km"`
	MinWeightKg   float64     `json:"min_weight_kg"`
	MaxWeightKg   float64     `json:"max_weight_kg"`
	Price         types.Money `json:"price"`
}

// Matches reports whether the point falls inside both ranges, bounds included.
func (r Rule) Matches(distanceKm, weightKg float64) bool {
	return r.MinDistanceKm <= distanceKm && distanceKm <= r.MaxDistanceKm &&
		r.MinWeightKg <= weightKg && weightKg <= r.MaxWeightKg
}

// Overlaps reports whether some (distance, weight) point matches both rules.
func (r Rule) Overlaps(o Rule) bool {
	return r.MinDistanceKm <= o.MaxDistanceKm && o.MinDistanceKm <= r.MaxDistanceKm &&
		r.MinWeightKg <= o.MaxWeightKg && o.MinWeightKg <= r.MaxWeightKg
}

func (r Rule) validate() error {
	switch {
	case r.MinDistanceKm < 0 || r.MinWeightKg < 0:
		return fmt.Errorf("%w: negative lower bound", ErrInvalidRule)
	case r.MaxDistanceKm < r.MinDistanceKm:
		return fmt.Errorf("%w: max distance %.2f below min %.2f", ErrInvalidRule, r.MaxDistanceKm, r.MinDistanceKm)
	case r.MaxWeightKg < r.MinWeightKg:
		return fmt.Errorf("%w: max weight %.2f below min %.2f", ErrInvalidRule, r.MaxWeightKg, r.MinWeightKg)
	case r.Price.Amount < 0:
		return fmt.Errorf("%w: negative price", ErrInvalidRule)
	case r.Price.Amount > types.MaxMoney:
		return fmt.Errorf("%w: price %s above limit", ErrInvalidRule, r.Price)
	}
	return nil
}

// Validate checks every rule and rejects any pair of rules sharing a point.
func Validate(rules []Rule) error {
	for i, r := range rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			if rules[i].Overlaps(rules[j]) {
				return fmt.Errorf("%w: rule %d and rule %d", ErrOverlappingRules, i+1, j+1)
			}
		}
	}
	return nil
}
