// Package domain models postcode geocode resolution.
//
// # Data Source
//
// Coordinates come from the zippopotam.us API:
//
//	GET https://api.zippopotam.us/us/{postcode}
//	→ {"places": [{"latitude": "40.7506", "longitude": "-73.9971", ...}], ...}
//
// Latitude and longitude arrive as JSON strings and are parsed to float64.
// Only the first place record is used. An absent or empty "places" array is
// a [NoDataError]: the postcode is syntactically valid but unknown upstream.
//
// # Postcodes
//
// US postal codes, 5 digits or ZIP+4. The keyspace is small and stable,
// which is why the coordinate cache grows without eviction.
//
// # Direction Labels
//
// Every resolved coordinate is classified into one of four quadrants (NE,
// NW, SE, SW) relative to a fixed reference point, New York City by default.
// Classification uses >= on both axes so a point exactly on a reference
// axis lands north or east; see [DirectionFrom].
//
// # Failure Taxonomy
//
// Fetch failures are classified into a small closed set of error types so
// the retry policy can decide eligibility and event payloads can carry a
// stable kind string; see [ErrKind] and [Retryable].
package domain
