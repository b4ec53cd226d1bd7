package geospatial

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// GeohashPrecision gives cells of roughly 150m, about the size of a paddock.
const GeohashPrecision = 7

const sqMetersPerHa = 10_000

// Measurements are derived from a ring and never alter it.
type Measurements struct {
	AreaHectares    float64
	PerimeterMeters float64
	Centroid        domain.Coordinate
	Geohash         string
}

// Measure computes spherical area, perimeter, centroid and geohash for a ring.
// ok is false when the ring does not form a valid loop on the sphere
// (self-intersecting or degenerate); the perimeter is still reported.
func Measure(ring domain.Ring) (m Measurements, ok bool) {
	m.PerimeterMeters = Perimeter(ring)

	pts := loopPoints(ring)
	if len(pts) < 3 || selfIntersects(pts) {
		return m, false
	}
	loop := s2.LoopFromPoints(pts)
	if loop.Validate() != nil {
		return m, false
	}
	// Rings arrive in either winding. s2 treats the left side as the
	// interior, so a clockwise ring covers the rest of the globe.
	if loop.Area() > 2*math.Pi {
		loop.Invert()
	}

	m.AreaHectares = loop.Area() * earthRadiusMeters * earthRadiusMeters / sqMetersPerHa

	c := loop.Centroid()
	if c.Norm() == 0 {
		return m, false
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: c.Normalize()})
	if !loop.RectBound().ContainsLatLng(ll) {
		return m, false
	}
	m.Centroid = domain.Coordinate{Lon: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}
	m.Geohash = geohash.EncodeWithPrecision(m.Centroid.Lat, m.Centroid.Lon, GeohashPrecision)
	return m, true
}

// loopPoints drops the closing vertex and consecutive duplicates, which s2 rejects.
func loopPoints(ring domain.Ring) []s2.Point {
	coords := ring.Coordinates()
	if len(coords) > 1 && coords[0] == coords[len(coords)-1] {
		coords = coords[:len(coords)-1]
	}
	pts := make([]s2.Point, 0, len(coords))
	var prev domain.Coordinate
	for i, c := range coords {
		if i > 0 && c == prev {
			continue
		}
		prev = c
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)))
	}
	return pts
}

// selfIntersects reports whether two non-adjacent edges of the closed chain
// pts cross. s2.Loop.Validate does not check this.
func selfIntersects(pts []s2.Point) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		crosser := s2.NewEdgeCrosser(a, b)
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // shares pts[0] with edge 0
			}
			if crosser.CrossingSign(pts[j], pts[(j+1)%n]) == s2.Cross {
				return true
			}
		}
	}
	return false
}
