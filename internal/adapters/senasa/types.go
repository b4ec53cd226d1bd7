package senasa

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// listResponse is the envelope of both registry endpoints. The detail
// endpoint omits hasMore.
type listResponse struct {
	Items   []recordDTO `json:"items"`
	HasMore bool        `json:"hasMore"`
}

type recordDTO struct {
	RENSPA     flexString      `json:"renspa"`
	Titular    flexString      `json:"titular"`
	Localidad  flexString      `json:"localidad"`
	Superficie flexFloat       `json:"superficie"`
	Poligono   flexString      `json:"poligono"`
	FechaBaja  json.RawMessage `json:"fecha_baja"`
}

func (r recordDTO) toDomain() domain.RegistryRecord {
	return domain.RegistryRecord{
		ID:                   string(r.RENSPA),
		OwnerName:            string(r.Titular),
		Locality:             string(r.Localidad),
		DeclaredAreaHectares: float64(r.Superficie),
		PolygonText:          string(r.Poligono),
		Active:               isNull(r.FechaBaja),
	}
}

// A record is active while its deregistration date is absent or null.
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// flexString accepts a JSON string, number or null. Null and any other
// value (object, array, bool) become "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	default:
		var n json.Number
		if json.Unmarshal(data, &n) != nil {
			*s = ""
			return nil
		}
		*s = flexString(n.String())
	}
	return nil
}

// flexFloat accepts a JSON number, a numeric string (comma or dot decimal)
// or null. Anything unparsable becomes 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
