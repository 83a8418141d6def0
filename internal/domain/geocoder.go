package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder fills in the half of a report's location the citizen left out.
type Geocoder interface {
	// ForwardGeocode converts a road or landmark name to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to a street address.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
