package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/ports"
	"github.com/Mica14-AgCode/VISU/internal/pkg/geospatial"
	"github.com/Mica14-AgCode/VISU/internal/pkg/metrics"
	"github.com/Mica14-AgCode/VISU/internal/pkg/telemetry"
)

const (
	defaultOwner    = "Sin_titular"
	defaultCacheTTL = 3600
)

// RegistryOptions tune a tax id extraction.
type RegistryOptions struct {
	// IncludeInactive keeps records that carry a deregistration date.
	IncludeInactive bool
}

// ArchiveUpload is one file of a batch upload.
type ArchiveUpload struct {
	Name string
	Data []byte
}

// ArchiveOutcome is the result for one upload of a batch. Exactly one of
// Result and Err is set.
type ArchiveOutcome struct {
	Name   string
	Result *domain.ExtractionResult
	Err    error
}

// RecordView is a single registry record with its decoded field, if any.
type RecordView struct {
	Record domain.RegistryRecord `json:"record"`
	Field  *domain.Field         `json:"field,omitempty"`
}

type FieldServiceOption func(*FieldService)

// WithCacheTTL sets how long complete registry extractions stay cached.
func WithCacheTTL(seconds int) FieldServiceOption {
	return func(s *FieldService) {
		if seconds > 0 {
			s.cacheTTL = seconds
		}
	}
}

func WithFieldLogger(l *slog.Logger) FieldServiceOption {
	return func(s *FieldService) { s.logger = l }
}

// FieldService turns registry records and archive markers into Fields.
// Every call runs sequentially and keeps its state on the stack.
type FieldService struct {
	registry  ports.RegistryClient
	archives  ports.ArchiveReader
	cache     ports.CacheService
	publisher ports.EventPublisher

	cacheTTL int
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewFieldService creates a new FieldService. cache and publisher may be nil.
func NewFieldService(
	registry ports.RegistryClient,
	archives ports.ArchiveReader,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	opts ...FieldServiceOption,
) *FieldService {
	s := &FieldService{
		registry:  registry,
		archives:  archives,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  defaultCacheTTL,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FieldsByTaxID extracts the fields registered to a CUIT. The id must be in
// canonical NN-NNNNNNNN-N form; anything else fails with a ValidationError
// before the registry is contacted. A registry failure mid-pagination is not
// an error: the fields decoded so far are returned and the summary says so.
func (s *FieldService) FieldsByTaxID(ctx context.Context, rawID string, opts RegistryOptions) (*domain.ExtractionResult, error) {
	taxID, err := domain.ParseTaxID(rawID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "usecases.FieldsByTaxID")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrTaxID, taxID))

	key := cacheKey(taxID, opts.IncludeInactive)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached domain.ExtractionResult
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("fields_by_tax_id").Inc()
				return &cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("fields_by_tax_id").Inc()
	}

	start := s.now()
	report, err := s.registry.FetchPages(ctx, taxID)
	if err != nil {
		return nil, err
	}

	fields, considered := s.BuildFromRecords(ctx, taxID, report.Records, opts)

	summary := domain.ExtractionSummary{
		BatchID:    s.newID(),
		Source:     domain.ProvenanceRegistry,
		Origin:     taxID,
		Inputs:     considered,
		Accepted:   len(fields),
		Rejected:   considered - len(fields),
		Pages:      report.Pages,
		Pagination: report.State,
		FinishedAt: s.now().UTC(),
	}
	if report.Err != nil {
		summary.Warnings = append(summary.Warnings, "registry pagination stopped early: "+report.Err.Error())
	}
	result := &domain.ExtractionResult{Summary: summary, Fields: fields}

	s.record(domain.ProvenanceRegistry, summary, start)
	span.SetAttributes(
		attribute.Int(telemetry.AttrAccepted, summary.Accepted),
		attribute.Int(telemetry.AttrRejected, summary.Rejected),
	)

	// Partial results are not cached; the next call retries the registry.
	if s.cache != nil && report.State == domain.PaginationExhausted {
		if data, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}

	s.publish(ctx, result)
	return result, nil
}

// BuildFromRecords decodes one Field per record that has geometry. Unless
// opts.IncludeInactive is set, deregistered records are skipped first.
// Records whose embedded polygon does not decode are looked up again
// through the detail endpoint. It returns the fields and how many records
// were considered after filtering.
func (s *FieldService) BuildFromRecords(ctx context.Context, taxID string, records []domain.RegistryRecord, opts RegistryOptions) ([]domain.Field, int) {
	fields := make([]domain.Field, 0, len(records))
	n := 0
	for _, rec := range records {
		if !rec.Active && !opts.IncludeInactive {
			continue
		}
		n++

		ring, err := s.registry.DecodePolygon(rec.PolygonText)
		if err != nil {
			ring, err = s.detailRing(ctx, rec.ID)
		}
		if err != nil {
			s.logger.Debug("registry record without geometry", "tax_id", taxID, "renspa", rec.ID, "reason", err)
			continue
		}

		f := registryField(taxID, n, rec, ring)
		fields = append(fields, f)
	}
	return fields, n
}

func registryField(taxID string, n int, rec domain.RegistryRecord, ring domain.Ring) domain.Field {
	owner := rec.OwnerName
	if owner == "" {
		owner = defaultOwner
	}
	f := domain.Field{
		SourceID:             rec.ID,
		Label:                fmt.Sprintf("Campo_%d_%s", n, owner),
		OwnerName:            rec.OwnerName,
		Locality:             rec.Locality,
		DeclaredAreaHectares: rec.DeclaredAreaHectares,
		Ring:                 ring,
		Provenance:           domain.RegistryProvenance(taxID, rec.ID),
	}
	measure(&f)
	return f
}

func (s *FieldService) detailRing(ctx context.Context, recordID string) (domain.Ring, error) {
	if recordID == "" {
		return domain.Ring{}, domain.ErrNoGeometry
	}
	detail, ok := s.registry.FetchDetail(ctx, recordID)
	if !ok {
		return domain.Ring{}, domain.ErrNoGeometry
	}
	return s.registry.DecodePolygon(detail.PolygonText)
}

// BuildFromMarkers turns the decoded markers of one document into Fields.
// Markup carries no registry metadata, so owner, locality and declared area
// stay empty.
func BuildFromMarkers(doc domain.DocumentMarkers) []domain.Field {
	prefix := doc.Document
	if doc.Archive != "" {
		prefix = doc.Archive + "/" + doc.Document
	}
	fields := make([]domain.Field, 0, len(doc.Markers))
	for _, m := range doc.Markers {
		f := domain.Field{
			SourceID:   fmt.Sprintf("%s#%d", prefix, m.Index),
			Label:      m.Label,
			Ring:       m.Ring,
			Provenance: domain.ArchiveProvenance(doc.Archive, doc.Document),
		}
		measure(&f)
		fields = append(fields, f)
	}
	return fields
}

// FieldsFromArchive decodes every marker of an uploaded KMZ or KML. Only an
// unreadable upload is an error; dropped markers and unparsable documents
// are counted in the summary.
func (s *FieldService) FieldsFromArchive(ctx context.Context, name string, data []byte) (*domain.ExtractionResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "usecases.FieldsFromArchive")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrArchive, name))

	start := s.now()
	contents, err := s.archives.ReadArchive(ctx, name, data)
	if err != nil {
		metrics.ArchivesRejected.Inc()
		return nil, err
	}

	summary := domain.ExtractionSummary{
		BatchID:  s.newID(),
		Source:   domain.ProvenanceArchive,
		Origin:   name,
		Warnings: contents.Failed,
	}
	fields := []domain.Field{}
	for _, doc := range contents.Documents {
		fields = append(fields, BuildFromMarkers(doc)...)
		summary.Inputs += len(doc.Markers) + len(doc.Rejected)
		summary.Rejected += len(doc.Rejected)
	}
	summary.Accepted = len(fields)
	summary.FinishedAt = s.now().UTC()

	result := &domain.ExtractionResult{Summary: summary, Fields: fields}
	s.record(domain.ProvenanceArchive, summary, start)
	span.SetAttributes(
		attribute.Int(telemetry.AttrAccepted, summary.Accepted),
		attribute.Int(telemetry.AttrRejected, summary.Rejected),
	)

	s.publish(ctx, result)
	return result, nil
}

// ExtractArchives processes uploads one after another. A failing upload is
// reported in its own outcome and does not affect the others.
func (s *FieldService) ExtractArchives(ctx context.Context, uploads []ArchiveUpload) []ArchiveOutcome {
	out := make([]ArchiveOutcome, 0, len(uploads))
	for _, u := range uploads {
		res, err := s.FieldsFromArchive(ctx, u.Name, u.Data)
		if err != nil {
			s.logger.Warn("archive rejected", "archive", u.Name, "error", err)
		}
		out = append(out, ArchiveOutcome{Name: u.Name, Result: res, Err: err})
	}
	return out
}

// RecordByNumber fetches one registry record and decodes its polygon.
func (s *FieldService) RecordByNumber(ctx context.Context, number string) (*RecordView, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, &domain.ValidationError{Field: "record number", Value: number, Reason: "must not be empty"}
	}

	rec, ok := s.registry.FetchDetail(ctx, number)
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	view := &RecordView{Record: *rec}

	if ring, err := s.registry.DecodePolygon(rec.PolygonText); err == nil {
		f := registryField("", 1, *rec, ring)
		view.Field = &f
	}
	return view, nil
}

func (s *FieldService) record(source domain.ProvenanceKind, sum domain.ExtractionSummary, start time.Time) {
	metrics.FieldsExtracted.WithLabelValues(string(source)).Add(float64(sum.Accepted))
	metrics.GeometryRejected.WithLabelValues(string(source)).Add(float64(sum.Rejected))
	metrics.ExtractionDuration.WithLabelValues(string(source)).Observe(s.now().Sub(start).Seconds())

	s.logger.Info("extraction finished",
		"batch_id", sum.BatchID,
		"source", source,
		"origin", sum.Origin,
		"inputs", sum.Inputs,
		"accepted", sum.Accepted,
		"rejected", sum.Rejected,
		"pagination", sum.Pagination,
	)
}

// publish is best effort; a broker outage never fails an extraction.
func (s *FieldService) publish(ctx context.Context, result *domain.ExtractionResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExtraction(ctx, result); err != nil {
		s.logger.Warn("publish extraction", "batch_id", result.Summary.BatchID, "error", err)
	}
}

// measure fills the derived metadata of f from its ring.
func measure(f *domain.Field) {
	m, ok := geospatial.Measure(f.Ring)
	f.PerimeterMeters = m.PerimeterMeters
	if !ok {
		return
	}
	f.ComputedAreaHectares = m.AreaHectares
	c := m.Centroid
	f.Centroid = &c
	f.Geohash = m.Geohash
}

// Forget drops the cached extractions of a CUIT so the next call reaches
// the registry again.
func (s *FieldService) Forget(ctx context.Context, rawID string) error {
	taxID, err := domain.ParseTaxID(rawID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, cacheKey(taxID, false), cacheKey(taxID, true)); err != nil {
		return fmt.Errorf("forget %s: %w", taxID, err)
	}
	return nil
}

func cacheKey(taxID string, includeInactive bool) string {
	return fmt.Sprintf("fields:cuit:%s:all=%t", taxID, includeInactive)
}
