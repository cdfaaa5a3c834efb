package domain

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReferencePoint is the fixed coordinate all direction labels are computed
// against. The platform default is New York City (postcode 10001).
type ReferencePoint struct {
	Latitude  float64
	Longitude float64
}

// Direction is a quadrant label relative to a reference point.
type Direction string

const (
	DirectionNE Direction = "NE"
	DirectionNW Direction = "NW"
	DirectionSE Direction = "SE"
	DirectionSW Direction = "SW"
)

// DirectionFrom classifies coords into one of the four quadrants around ref.
// Both axes compare with >=, so a point exactly on the reference latitude or
// longitude is classified north or east respectively. The tie-break is
// deliberate: the reference point itself is NE.
func DirectionFrom(coords Coordinates, ref ReferencePoint) Direction {
	isNorth := coords.Latitude >= ref.Latitude
	isEast := coords.Longitude >= ref.Longitude

	switch {
	case isNorth && isEast:
		return DirectionNE
	case isNorth:
		return DirectionNW
	case isEast:
		return DirectionSE
	default:
		return DirectionSW
	}
}
