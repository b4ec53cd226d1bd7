package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

func TestNewRing_ClosesOpenSequence(t *testing.T) {
	coords := []domain.Coordinate{{Lon: -60.1, Lat: -34.5}, {Lon: -60.2, Lat: -34.6}, {Lon: -60.3, Lat: -34.5}}

	ring, err := domain.NewRing(coords)
	require.NoError(t, err)

	want := append(coords, coords[0])
	if diff := cmp.Diff(want, ring.Coordinates()); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRing_AlreadyClosedIsUnchanged(t *testing.T) {
	coords := []domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}, {Lon: 1, Lat: 1}}

	ring, err := domain.NewRing(coords)
	require.NoError(t, err)
	assert.Equal(t, 4, ring.Len())
}

func TestCloseRing_Idempotent(t *testing.T) {
	coords := []domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}}

	once := domain.CloseRing(coords)
	twice := domain.CloseRing(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("closing twice changed the ring (-once +twice):\n%s", diff)
	}
	assert.Len(t, coords, 3, "input must not be mutated")
}

func TestNewRing_RejectsTooFewDistinctVertices(t *testing.T) {
	tests := []struct {
		name   string
		coords []domain.Coordinate
	}{
		{"empty", nil},
		{"two points", []domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}},
		{"three points two distinct", []domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}, {Lon: 1, Lat: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewRing(tt.coords)
			assert.True(t, errors.Is(err, domain.ErrInsufficientPoints), "got %v", err)
			assert.True(t, domain.IsGeometryRejected(err))
		})
	}
}

func TestRing_CoordinatesReturnsCopy(t *testing.T) {
	ring, err := domain.NewRing([]domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}})
	require.NoError(t, err)

	got := ring.Coordinates()
	got[0].Lon = 99

	assert.Equal(t, 1.0, ring.Coordinates()[0].Lon)
}

func TestRing_JSONRoundTripKeepsLonLatOrder(t *testing.T) {
	ring, err := domain.NewRing([]domain.Coordinate{{Lon: -60.1, Lat: -34.5}, {Lon: -60.2, Lat: -34.6}, {Lon: -60.3, Lat: -34.5}})
	require.NoError(t, err)

	data, err := json.Marshal(ring)
	require.NoError(t, err)
	assert.JSONEq(t, `[[-60.1,-34.5],[-60.2,-34.6],[-60.3,-34.5],[-60.1,-34.5]]`, string(data))

	var decoded domain.Ring
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ring.Coordinates(), decoded.Coordinates())
}

func TestRing_Bounds(t *testing.T) {
	ring, err := domain.NewRing([]domain.Coordinate{{Lon: -60.1, Lat: -34.5}, {Lon: -60.2, Lat: -34.6}, {Lon: -60.3, Lat: -34.5}})
	require.NoError(t, err)

	b := ring.Bounds()
	assert.Equal(t, domain.Bounds{MinLat: -34.6, MinLon: -60.3, MaxLat: -34.5, MaxLon: -60.1}, b)
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, domain.Coordinate{Lon: 180, Lat: -90}.Valid())
	assert.False(t, domain.Coordinate{Lon: 180.0001, Lat: 0}.Valid())
	assert.False(t, domain.Coordinate{Lon: 0, Lat: 90.5}.Valid())
}

func TestToFeatureCollection(t *testing.T) {
	ring, err := domain.NewRing([]domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}})
	require.NoError(t, err)

	fc := domain.ToFeatureCollection([]domain.Field{{
		SourceID:   "renspa-1",
		Label:      "Campo_1_ACME",
		Ring:       ring,
		Provenance: domain.RegistryProvenance("30-12345678-9", "renspa-1"),
	}})

	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "Polygon", f.Geometry.Type)
	assert.Equal(t, [2]float64{1, 1}, f.Geometry.Coordinates[0][0])
	assert.Equal(t, "renspa-1", f.Properties["registry_id"])
	assert.Equal(t, "registry", f.Properties["source"])
}

func TestToFeatureCollection_BBox(t *testing.T) {
	a, err := domain.NewRing([]domain.Coordinate{{Lon: -60.3, Lat: -34.6}, {Lon: -60.1, Lat: -34.6}, {Lon: -60.1, Lat: -34.5}})
	require.NoError(t, err)
	b, err := domain.NewRing([]domain.Coordinate{{Lon: -61, Lat: -34.2}, {Lon: -60.9, Lat: -34.2}, {Lon: -60.9, Lat: -34.1}})
	require.NoError(t, err)

	fc := domain.ToFeatureCollection([]domain.Field{{SourceID: "a", Ring: a}, {SourceID: "b", Ring: b}, {SourceID: "empty"}})

	require.Len(t, fc.Features, 3)
	assert.Equal(t, []float64{-60.3, -34.6, -60.1, -34.5}, fc.Features[0].BBox)
	assert.Nil(t, fc.Features[2].BBox, "a field without geometry has no bbox")
	assert.Equal(t, []float64{-61, -34.6, -60.1, -34.1}, fc.BBox)
}

func TestRing_IsZero(t *testing.T) {
	assert.True(t, domain.Ring{}.IsZero())
	ring, err := domain.NewRing([]domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}})
	require.NoError(t, err)
	assert.False(t, ring.IsZero())
}

func TestField_CentroidOmittedWhenUnknown(t *testing.T) {
	data, err := json.Marshal(domain.Field{SourceID: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "centroid")

	data, err = json.Marshal(domain.Field{SourceID: "x", Centroid: &domain.Coordinate{Lon: -60.5, Lat: -34}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"centroid":{"lon":-60.5,"lat":-34}`)
}
