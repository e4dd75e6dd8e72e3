// Package location: geo_utils contains pure geographic computation helpers.
package location

import (
	"math"

	"masar/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points. A missing
// point yields 0.
func DistanceKm(from, to *types.Point) float64 {
	if from == nil || to == nil {
		return 0
	}
	return haversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
}

// RoundKm rounds a distance to 10 metres, the precision stored on a parcel.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Clamp float noise so asin stays defined for antipodal points.
	a = math.Min(1, math.Max(0, a))

	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusKm
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
