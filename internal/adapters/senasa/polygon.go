package senasa

import (
	"regexp"
	"strconv"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// pairPattern matches "(a,b)" anywhere in the text. Blanks around the
// numbers are tolerated; anything outside the parentheses is ignored.
var pairPattern = regexp.MustCompile(`\(\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*\)`)

// DecodePolygon decodes the registry polygon format "(lat,lon)(lat,lon)...".
// The registry writes latitude first; the returned ring is (lon,lat) like
// every other ring in the system. This is the only place the axes are swapped.
//
// Pairs that fail to parse or fall out of range are skipped. Zero usable
// pairs yields domain.ErrNoGeometry; fewer than three distinct ones yields
// domain.ErrInsufficientPoints.
func DecodePolygon(text string) (domain.Ring, error) {
	matches := pairPattern.FindAllStringSubmatch(text, -1)

	coords := make([]domain.Coordinate, 0, len(matches))
	for _, m := range matches {
		lat, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		c := domain.Coordinate{Lon: lon, Lat: lat}
		if !c.Valid() {
			continue
		}
		coords = append(coords, c)
	}

	if len(coords) == 0 {
		return domain.Ring{}, domain.ErrNoGeometry
	}
	return domain.NewRing(coords)
}
