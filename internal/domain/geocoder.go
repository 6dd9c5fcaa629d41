package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0 to 1.0 provider confidence score
}

// Found reports whether the provider returned coordinates.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-text locations to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name ("Austin, TX") to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}
