package tariff

import (
	"fmt"
	"sort"
)

// Table is an immutable, ordered set of rules.
type Table struct {
	rules []Rule
}

// NewTable copies rules and orders them by (min distance, min weight, id) so
// that resolution is deterministic even if the input overlaps.
func NewTable(rules []Rule) Table {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.MinDistanceKm != b.MinDistanceKm {
			return a.MinDistanceKm < b.MinDistanceKm
		}
		if a.MinWeightKg != b.MinWeightKg {
			return a.MinWeightKg < b.MinWeightKg
		}
		return a.ID < b.ID
	})
	return Table{rules: sorted}
}

func (t Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t Table) Len() int {
	return len(t.rules)
}

// Resolve returns the first rule covering the point.
func (t Table) Resolve(distanceKm, weightKg float64) (Rule, error) {
	if distanceKm < 0 || weightKg < 0 {
		return Rule{}, fmt.Errorf("%w: negative input", ErrNoPricingRuleFound)
	}
	for _, r := range t.rules {
		if r.Matches(distanceKm, weightKg) {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %.2f km, %.2f kg", ErrNoPricingRuleFound, distanceKm, weightKg)
}
