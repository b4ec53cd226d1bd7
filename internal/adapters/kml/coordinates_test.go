package kml_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mica14-AgCode/VISU/internal/adapters/kml"
	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

func TestParseCoordinates_OpenBlockGetsClosed(t *testing.T) {
	ring, err := kml.ParseCoordinates("-60.1,-34.5,0 -60.2,-34.6,0 -60.3,-34.5,0")
	require.NoError(t, err)

	want := []domain.Coordinate{
		{Lon: -60.1, Lat: -34.5},
		{Lon: -60.2, Lat: -34.6},
		{Lon: -60.3, Lat: -34.5},
		{Lon: -60.1, Lat: -34.5},
	}
	if diff := cmp.Diff(want, ring.Coordinates()); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCoordinates_ClosedBlockKeepsLength(t *testing.T) {
	ring, err := kml.ParseCoordinates("1,1 2,1 2,2 1,1")
	require.NoError(t, err)
	assert.Equal(t, 4, ring.Len())
}

func TestParseCoordinates_WhitespaceVariants(t *testing.T) {
	text := "\n\t\t1,1,0\r\n\t2,1,0\t\t2,2,0  3,3\n"

	ring, err := kml.ParseCoordinates(text)
	require.NoError(t, err)
	assert.Equal(t, 5, ring.Len())
}

func TestParseCoordinates_DropsBadTokensNotBlock(t *testing.T) {
	text := "1,1 abc,2 2,1 200,5 5,95 3 2,2 NaN,1"

	ring, err := kml.ParseCoordinates(text)
	require.NoError(t, err)

	want := []domain.Coordinate{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 1}, {Lon: 2, Lat: 2}, {Lon: 1, Lat: 1}}
	assert.Equal(t, want, ring.Coordinates())
}

func TestParseCoordinates_InsufficientPoints(t *testing.T) {
	for _, text := range []string{"", "1,1 2,2", "1,1 bogus 2,2", "1,1 1,1 1,1"} {
		_, err := kml.ParseCoordinates(text)
		assert.True(t, errors.Is(err, domain.ErrInsufficientPoints), "text %q: got %v", text, err)
	}
}
