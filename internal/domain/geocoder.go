package domain

import "context"

// Geocoder resolves a postcode to coordinates via an upstream provider.
type Geocoder interface {
	// Lookup issues a single upstream request for the postcode. Failures
	// surface as one of the taxonomy errors in this package.
	Lookup(ctx context.Context, postcode string) (Coordinates, error)
}
