// README: Shared identifiers and coordinates.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

type ID string

// NewID returns a random UUIDv4 identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// PointFrom builds a Point when both components are present, nil otherwise.
func PointFrom(lat, lng *float64) *Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &Point{Lat: *lat, Lng: *lng}
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
