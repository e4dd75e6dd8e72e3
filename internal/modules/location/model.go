// README: Postal address with optional coordinates, shared by parcel pickup and delivery.
package location

import (
	"strings"

	"masar/internal/types"
)

type Address struct {
	Country string       `json:"country"`
	Region  string       `json:"region"`
	City    string       `json:"city"`
	Line    string       `json:"address"`
	Point   *types.Point `json:"point,omitempty"`
}

// Query joins the non-empty address parts from most to least specific, as a
// geocoder expects them.
func (a Address) Query() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line, a.City, a.Region, a.Country} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Coarse is the city and region only, safe to show on public tracking pages.
func (a Address) Coarse() string {
	switch {
	case a.City != "" && a.Region != "":
		return a.City + ", " + a.Region
	case a.City != "":
		return a.City
	default:
		return a.Region
	}
}
