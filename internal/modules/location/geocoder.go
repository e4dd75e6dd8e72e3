package location

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"masar/internal/types"
)

var ErrAddressNotFound = errors.New("address not found")

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*types.Point, error)
}

// MapsGeocoder handles interactions with the Google Geocoding API.
type MapsGeocoder struct {
	client *maps.Client
	region string
}

// NewMapsGeocoder creates a geocoder biased to the given ccTLD region (e.g. "om").
func NewMapsGeocoder(apiKey, region string) (*MapsGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsGeocoder{client: client, region: region}, nil
}

func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (*types.Point, error) {
	if address == "" {
		return nil, ErrAddressNotFound
	}
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(resp) == 0 {
		return nil, ErrAddressNotFound
	}
	loc := resp[0].Geometry.Location
	return &types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
