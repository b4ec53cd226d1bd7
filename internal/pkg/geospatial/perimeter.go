package geospatial

import (
	"github.com/golang/geo/s2"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

const earthRadiusMeters = 6_371_000.0

// Distance is the great-circle distance between two WGS84 positions, in meters.
func Distance(a, b domain.Coordinate) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * earthRadiusMeters
}

// Perimeter walks every edge of a closed ring, in meters.
func Perimeter(ring domain.Ring) float64 {
	coords := ring.Coordinates()
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}
