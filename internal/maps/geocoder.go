package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"phlebo/internal/types"
)

// Geocoder resolves free-text addresses to coordinates through the
// Google Maps Geocoding API. Orders created without coordinates go
// through here before matching.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a Geocoder with the given API key.
func NewGeocoder(apiKey string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Resolve geocodes an address, biased to India where the service operates.
func (g *Geocoder) Resolve(ctx context.Context, address string) (types.Point, error) {
	r := &maps.GeocodingRequest{
		Address: address,
		Region:  "IN",
	}

	results, err := g.client.Geocode(ctx, r)
	if err != nil {
		return types.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no match for address %q", address)
	}

	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
