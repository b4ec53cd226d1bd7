package domain

// FeatureCollection is a GeoJSON FeatureCollection of field polygons.
type FeatureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature carrying one Field.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	BBox       []float64      `json:"bbox,omitempty"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry is a GeoJSON Polygon with a single exterior ring.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"` // [ring][vertex][lon, lat]
}

// ToFeatureCollection converts fields to GeoJSON, preserving order.
func ToFeatureCollection(fields []Field) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(fields))}
	var all *Bounds
	for _, f := range fields {
		props := map[string]any{
			"label":            f.Label,
			"owner_name":       f.OwnerName,
			"locality":         f.Locality,
			"declared_area_ha": f.DeclaredAreaHectares,
			"computed_area_ha": f.ComputedAreaHectares,
			"source":           string(f.Provenance.Kind),
		}
		switch f.Provenance.Kind {
		case ProvenanceArchive:
			props["archive_name"] = f.Provenance.ArchiveName
			props["document_name"] = f.Provenance.DocumentName
		case ProvenanceRegistry:
			props["registry_id"] = f.Provenance.RegistryID
			props["tax_id"] = f.Provenance.TaxID
		}
		if f.Geohash != "" {
			props["geohash"] = f.Geohash
		}
		var bbox []float64
		if !f.Ring.IsZero() {
			b := f.Ring.Bounds()
			bbox = b.BBox()
			if all == nil {
				all = &b
			} else {
				*all = all.Union(b)
			}
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			ID:         f.SourceID,
			BBox:       bbox,
			Properties: props,
			Geometry: Geometry{
				Type:        "Polygon",
				Coordinates: [][][2]float64{f.Ring.Positions()},
			},
		})
	}
	if all != nil {
		fc.BBox = all.BBox()
	}
	return fc
}
