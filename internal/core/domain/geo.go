package domain

import (
	"encoding/json"
	"fmt"
)

// minRingVertices is the number of distinct vertices a boundary needs before closure.
const minRingVertices = 3

// Coordinate is a WGS 84 position in canonical (lon, lat) order.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate lies inside the WGS 84 value range.
// NaN and infinities fail every comparison and are therefore invalid.
func (c Coordinate) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Ring is a closed, immutable sequence of coordinates describing one field
// boundary. The zero value is an empty ring; build rings with NewRing.
type Ring struct {
	coords []Coordinate
}

// NewRing validates coords and returns a closed ring. It fails with
// ErrInsufficientPoints unless at least three distinct valid vertices are
// present. The input slice is copied.
func NewRing(coords []Coordinate) (Ring, error) {
	distinct := make(map[Coordinate]struct{}, len(coords))
	for _, c := range coords {
		if !c.Valid() {
			return Ring{}, fmt.Errorf("vertex %v out of range: %w", c, ErrInsufficientPoints)
		}
		distinct[c] = struct{}{}
	}
	if len(distinct) < minRingVertices {
		return Ring{}, ErrInsufficientPoints
	}
	return Ring{coords: CloseRing(coords)}, nil
}

// CloseRing returns a copy of coords with the first coordinate appended when
// the first and last coordinates differ. Closing a closed sequence is a no-op.
func CloseRing(coords []Coordinate) []Coordinate {
	out := make([]Coordinate, len(coords), len(coords)+1)
	copy(out, coords)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// Coordinates returns a copy of the ring's vertices, closing vertex included.
func (r Ring) Coordinates() []Coordinate {
	out := make([]Coordinate, len(r.coords))
	copy(out, r.coords)
	return out
}

// Len returns the number of vertices including the closing vertex.
func (r Ring) Len() int { return len(r.coords) }

// IsZero reports whether the ring holds no geometry.
func (r Ring) IsZero() bool { return len(r.coords) == 0 }

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() Bounds {
	if len(r.coords) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: r.coords[0].Lat, MaxLat: r.coords[0].Lat,
		MinLon: r.coords[0].Lon, MaxLon: r.coords[0].Lon,
	}
	for _, c := range r.coords[1:] {
		b.MinLat = min(b.MinLat, c.Lat)
		b.MaxLat = max(b.MaxLat, c.Lat)
		b.MinLon = min(b.MinLon, c.Lon)
		b.MaxLon = max(b.MaxLon, c.Lon)
	}
	return b
}

// Positions returns the ring as [lon, lat] pairs, the order GeoJSON and
// downstream map layers expect.
func (r Ring) Positions() [][2]float64 {
	out := make([][2]float64, len(r.coords))
	for i, c := range r.coords {
		out[i] = [2]float64{c.Lon, c.Lat}
	}
	return out
}

// MarshalJSON encodes the ring as [[lon,lat],...].
func (r Ring) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Positions())
}

// UnmarshalJSON decodes [[lon,lat],...] and re-validates the ring.
func (r *Ring) UnmarshalJSON(data []byte) error {
	var pos [][2]float64
	if err := json.Unmarshal(data, &pos); err != nil {
		return err
	}
	if len(pos) == 0 {
		*r = Ring{}
		return nil
	}
	coords := make([]Coordinate, len(pos))
	for i, p := range pos {
		coords[i] = Coordinate{Lon: p[0], Lat: p[1]}
	}
	ring, err := NewRing(coords)
	if err != nil {
		return err
	}
	*r = ring
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BBox returns the bounds in GeoJSON order: west, south, east, north.
func (b Bounds) BBox() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Union returns the smallest Bounds covering b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinLat: min(b.MinLat, o.MinLat),
		MinLon: min(b.MinLon, o.MinLon),
		MaxLat: max(b.MaxLat, o.MaxLat),
		MaxLon: max(b.MaxLon, o.MaxLon),
	}
}
