package domain

import "time"

// ProvenanceKind identifies which source produced a Field.
type ProvenanceKind string

const (
	ProvenanceArchive  ProvenanceKind = "archive"
	ProvenanceRegistry ProvenanceKind = "registry"
)

// Provenance records the single document or registry record a Field came from.
type Provenance struct {
	Kind         ProvenanceKind `json:"kind"`
	ArchiveName  string         `json:"archive_name,omitempty"`
	DocumentName string         `json:"document_name,omitempty"`
	RegistryID   string         `json:"registry_id,omitempty"`
	TaxID        string         `json:"tax_id,omitempty"`
}

// ArchiveProvenance tags a Field decoded from a markup document inside an archive.
func ArchiveProvenance(archiveName, documentName string) Provenance {
	return Provenance{Kind: ProvenanceArchive, ArchiveName: archiveName, DocumentName: documentName}
}

// RegistryProvenance tags a Field decoded from a registry record.
func RegistryProvenance(taxID, registryID string) Provenance {
	return Provenance{Kind: ProvenanceRegistry, RegistryID: registryID, TaxID: taxID}
}

// Field is one agricultural field boundary with its metadata.
type Field struct {
	SourceID             string     `json:"source_id"`
	Label                string     `json:"label"`
	OwnerName            string     `json:"owner_name"`
	Locality             string     `json:"locality"`
	DeclaredAreaHectares float64    `json:"declared_area_ha"`
	Ring                 Ring       `json:"ring"`
	Provenance           Provenance `json:"provenance"`

	// Derived from Ring when the Field is built.
	ComputedAreaHectares float64     `json:"computed_area_ha"`
	PerimeterMeters      float64     `json:"perimeter_m"`
	Centroid             *Coordinate `json:"centroid,omitempty"`
	Geohash              string      `json:"geohash,omitempty"`
}

// RawMarker is a boundary marker as found in a markup document, before decoding.
type RawMarker struct {
	Label          string
	CoordinateText string
}

// Marker is a boundary marker whose coordinates decoded into a ring.
type Marker struct {
	Index int // 1-based position among all markers of the document
	Label string
	Ring  Ring
}

// RejectedMarker is a marker dropped because its geometry did not decode.
type RejectedMarker struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// DocumentMarkers is what one markup document yielded.
type DocumentMarkers struct {
	Archive  string
	Document string
	Markers  []Marker
	Rejected []RejectedMarker
}

// ArchiveContents is the traversal output for one upload. Documents that
// could not be parsed are listed in Failed; the others are still decoded.
type ArchiveContents struct {
	Name      string
	Documents []DocumentMarkers
	Failed    []string
}

// RegistryRecord is one entry returned by the cadastral registry.
type RegistryRecord struct {
	ID                   string  `json:"id"`
	OwnerName            string  `json:"owner_name"`
	Locality             string  `json:"locality"`
	DeclaredAreaHectares float64 `json:"declared_area_ha"`
	PolygonText          string  `json:"polygon_text,omitempty"`
	Active               bool    `json:"active"`
}

// PaginationState is the terminal state of a paginated registry fetch.
type PaginationState string

const (
	PaginationExhausted PaginationState = "exhausted"
	PaginationFailed    PaginationState = "failed"
)

// PageReport is the outcome of a paginated registry fetch. Err holds the
// failure that ended pagination when State is PaginationFailed.
type PageReport struct {
	Records []RegistryRecord
	Pages   int
	State   PaginationState
	Err     error
}

// TaxIDRequest asks a worker to extract the fields registered to a taxpayer.
type TaxIDRequest struct {
	RequestID       string `json:"request_id"`
	TaxID           string `json:"tax_id"`
	IncludeInactive bool   `json:"include_inactive,omitempty"`
}

// ExtractionSummary describes how many inputs survived decoding.
type ExtractionSummary struct {
	BatchID    string          `json:"batch_id"`
	Source     ProvenanceKind  `json:"source"`
	Origin     string          `json:"origin"` // tax id or archive name
	Inputs     int             `json:"inputs"`
	Accepted   int             `json:"accepted"`
	Rejected   int             `json:"rejected"`
	Pages      int             `json:"pages,omitempty"`
	Pagination PaginationState `json:"pagination,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// ExtractionResult is the output of one extraction call.
type ExtractionResult struct {
	Summary ExtractionSummary `json:"summary"`
	Fields  []Field           `json:"fields"`
}
