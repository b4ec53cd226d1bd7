package natsadapter

import (
	"strings"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

const (
	// SubjectExtracted prefixes every extraction result; the last token is
	// the source ("registry" or "archive").
	SubjectExtracted = "fields.extracted"
	// SubjectTaxIDRequests carries domain.TaxIDRequest jobs for the worker.
	SubjectTaxIDRequests = "fields.requests.cuit"

	streamExtracted = "FIELDS"
	streamRequests  = "FIELD_REQUESTS"

	requestConsumer = "cuit-extractor"
)

// ExtractedSubject returns the subject a result from source is published on.
func ExtractedSubject(source domain.ProvenanceKind) string {
	s := strings.TrimSpace(string(source))
	if s == "" {
		s = "unknown"
	}
	return SubjectExtracted + "." + s
}
