package kml

import (
	"strconv"
	"strings"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// ParseCoordinates turns the text of a KML <coordinates> element
// ("lon,lat[,alt] lon,lat[,alt] ...") into a closed ring.
//
// Tuples that do not parse or fall outside the WGS 84 range are dropped one
// by one; the block as a whole is rejected with domain.ErrInsufficientPoints
// only when fewer than three usable vertices remain.
func ParseCoordinates(text string) (domain.Ring, error) {
	tokens := strings.Fields(text) // any run of unicode whitespace is one separator
	coords := make([]domain.Coordinate, 0, len(tokens))
	for _, token := range tokens {
		c, ok := parseTuple(token)
		if !ok {
			continue
		}
		coords = append(coords, c)
	}
	return domain.NewRing(coords)
}

func parseTuple(token string) (domain.Coordinate, bool) {
	parts := strings.Split(token, ",")
	if len(parts) < 2 {
		return domain.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	c := domain.Coordinate{Lon: lon, Lat: lat}
	return c, c.Valid()
}
