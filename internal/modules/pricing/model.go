// README: Platform pricing configuration and the computed price breakdown.
package pricing

import (
	"time"

	"masar/internal/modules/tariff"
	"masar/internal/types"
)

// Settings is the platform-wide configuration edited by administrators.
type Settings struct {
	PlatformFee        types.Percent `json:"platform_fee_percentage"`
	AcceptingShipments bool          `json:"accepting_shipments"`
	PaymentsEnabled    bool          `json:"payments_enabled"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// DefaultSettings applies when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{PlatformFee: 0, AcceptingShipments: true, PaymentsEnabled: true}
}

// Snapshot is one consistent view of settings and tariffs, read as a unit.
type Snapshot struct {
	Settings Settings      `json:"settings"`
	Rules    []tariff.Rule `json:"rules"`
}

type QuoteRequest struct {
	Pickup   *types.Point
	Delivery *types.Point
	WeightKg float64
}

type Breakdown struct {
	DistanceKm         float64       `json:"distance_km"`
	WeightKg           float64       `json:"weight_kg"`
	TotalPrice         types.Money   `json:"price"`
	PlatformFeePercent types.Percent `json:"platform_fee_percentage"`
	PlatformFee        types.Money   `json:"platform_fee"`
	DriverAmount       types.Money   `json:"driver_amount"`
	TariffRuleID       int64         `json:"-"`
}
