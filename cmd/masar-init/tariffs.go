package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"masar/internal/modules/tariff"
	"masar/internal/types"
)

// tariffFile is the on-disk tariff table. Prices are decimal rials.
type tariffFile struct {
	Rules []struct {
		MinDistanceKm float64 `yaml:"min_distance_km"`
		MaxDistanceKm float64 `yaml:"max_distance_km"`
		MinWeightKg   float64 `yaml:"min_weight_kg"`
		MaxWeightKg   float64 `yaml:"max_weight_kg"`
		Price         string  `yaml:"price"`
	} `yaml:"rules"`
}

func parseTariffs(raw []byte) ([]tariff.Rule, error) {
	var f tariffFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tariffs: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("parse tariffs: no rules")
	}
	rules := make([]tariff.Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		price, err := types.ParseMoney(r.Price)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, tariff.Rule{
			MinDistanceKm: r.MinDistanceKm,
			MaxDistanceKm: r.MaxDistanceKm,
			MinWeightKg:   r.MinWeightKg,
			MaxWeightKg:   r.MaxWeightKg,
			Price:         price,
		})
	}
	return rules, nil
}
