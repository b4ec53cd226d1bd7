package geospatial

import (
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

func square(t *testing.T, clockwise bool) domain.Ring {
	t.Helper()
	// ~1.1km x ~0.9km block near Pergamino.
	coords := []domain.Coordinate{
		{Lon: -60.60, Lat: -33.90},
		{Lon: -60.59, Lat: -33.90},
		{Lon: -60.59, Lat: -33.89},
		{Lon: -60.60, Lat: -33.89},
	}
	if clockwise {
		coords[1], coords[3] = coords[3], coords[1]
	}
	r, err := domain.NewRing(coords)
	require.NoError(t, err)
	return r
}

func TestMeasure_Area(t *testing.T) {
	m, ok := Measure(square(t, false))
	require.True(t, ok)
	// 0.01° lat ≈ 1112m, 0.01° lon at 33.9°S ≈ 923m
	assert.InDelta(t, 102.6, m.AreaHectares, 1.5)
	assert.InDelta(t, -60.595, m.Centroid.Lon, 1e-4)
	assert.InDelta(t, -33.895, m.Centroid.Lat, 1e-4)
	assert.Len(t, m.Geohash, GeohashPrecision)
}

func TestMeasure_WindingIndependent(t *testing.T) {
	ccw, ok := Measure(square(t, false))
	require.True(t, ok)
	cw, ok := Measure(square(t, true))
	require.True(t, ok)
	assert.InDelta(t, ccw.AreaHectares, cw.AreaHectares, 1e-6)
	assert.Equal(t, ccw.Geohash, cw.Geohash)
}

func TestMeasure_SelfIntersecting(t *testing.T) {
	r, err := domain.NewRing([]domain.Coordinate{
		{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 1, Lat: 0}, {Lon: 0, Lat: 1},
	})
	require.NoError(t, err)
	m, ok := Measure(r)
	assert.False(t, ok)
	assert.Greater(t, m.PerimeterMeters, 0.0)
	assert.Zero(t, m.AreaHectares)
	assert.Empty(t, m.Geohash)
	assert.Zero(t, m.Centroid)
}

func TestMeasure_FieldWithCrossedBoundary(t *testing.T) {
	// A paddock traced with two vertices swapped, as happens in hand-drawn KML.
	r, err := domain.NewRing([]domain.Coordinate{
		{Lon: -60.60, Lat: -33.90},
		{Lon: -60.59, Lat: -33.89},
		{Lon: -60.59, Lat: -33.90},
		{Lon: -60.60, Lat: -33.89},
	})
	require.NoError(t, err)
	_, ok := Measure(r)
	assert.False(t, ok)
}

func TestSelfIntersects(t *testing.T) {
	pt := func(lon, lat float64) s2.Point { return s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)) }

	square := []s2.Point{pt(0, 0), pt(1, 0), pt(1, 1), pt(0, 1)}
	assert.False(t, selfIntersects(square))

	bowTie := []s2.Point{pt(0, 0), pt(1, 1), pt(1, 0), pt(0, 1)}
	assert.True(t, selfIntersects(bowTie))

	triangle := []s2.Point{pt(0, 0), pt(1, 0), pt(0, 1)}
	assert.False(t, selfIntersects(triangle))
}

func TestPerimeter(t *testing.T) {
	p := Perimeter(square(t, false))
	assert.InDelta(t, 2*(1112+923), p, 20)
}

func TestDistance(t *testing.T) {
	here := domain.Coordinate{Lon: -60, Lat: -34}
	assert.InDelta(t, 0, Distance(here, here), 1e-9)
	// one degree of latitude
	assert.InDelta(t, 111195, Distance(domain.Coordinate{}, domain.Coordinate{Lat: 1}), 5)
}
