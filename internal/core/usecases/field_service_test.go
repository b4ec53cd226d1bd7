package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Mica14-AgCode/VISU/internal/adapters/senasa"
	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

const (
	taxID   = "30-12345678-9"
	polygon = "(-34.5,-60.1)(-34.6,-60.2)(-34.5,-60.3)"
)

// --- Mock RegistryClient ---

type mockRegistry struct {
	fetchPagesFn  func(ctx context.Context, taxID string) (*domain.PageReport, error)
	fetchDetailFn func(ctx context.Context, number string) (*domain.RegistryRecord, bool)

	pageCalls   int
	detailCalls []string
}

func (m *mockRegistry) FetchPages(ctx context.Context, taxID string) (*domain.PageReport, error) {
	m.pageCalls++
	if m.fetchPagesFn != nil {
		return m.fetchPagesFn(ctx, taxID)
	}
	return &domain.PageReport{State: domain.PaginationExhausted}, nil
}

func (m *mockRegistry) FetchDetail(ctx context.Context, number string) (*domain.RegistryRecord, bool) {
	m.detailCalls = append(m.detailCalls, number)
	if m.fetchDetailFn != nil {
		return m.fetchDetailFn(ctx, number)
	}
	return nil, false
}

func (m *mockRegistry) DecodePolygon(text string) (domain.Ring, error) {
	return senasa.DecodePolygon(text)
}

// --- Mock ArchiveReader ---

type mockArchives struct {
	readFn func(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error)
}

func (m *mockArchives) ReadArchive(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error) {
	return m.readFn(ctx, name, data)
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []*domain.ExtractionResult
	err       error
}

func (m *mockPublisher) PublishExtraction(ctx context.Context, r *domain.ExtractionResult) error {
	m.published = append(m.published, r)
	return m.err
}

func pages(records ...domain.RegistryRecord) func(context.Context, string) (*domain.PageReport, error) {
	return func(context.Context, string) (*domain.PageReport, error) {
		return &domain.PageReport{Records: records, Pages: 1, State: domain.PaginationExhausted}, nil
	}
}

func mustRing(t *testing.T, text string) domain.Ring {
	t.Helper()
	r, err := senasa.DecodePolygon(text)
	if err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return r
}

func TestFieldsByTaxID_RejectsNonCanonicalID(t *testing.T) {
	reg := &mockRegistry{}
	svc := usecases.NewFieldService(reg, nil, nil, nil)

	_, err := svc.FieldsByTaxID(context.Background(), "30123456789", usecases.RegistryOptions{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if reg.pageCalls != 0 {
		t.Errorf("registry must not be called, got %d calls", reg.pageCalls)
	}
}

func TestFieldsByTaxID_BuildsActiveFields(t *testing.T) {
	reg := &mockRegistry{
		fetchPagesFn: pages(
			domain.RegistryRecord{ID: "A", OwnerName: "Estancia A", Locality: "Junín", DeclaredAreaHectares: 50, PolygonText: polygon, Active: true},
			domain.RegistryRecord{ID: "B", OwnerName: "Baja", PolygonText: polygon, Active: false},
			domain.RegistryRecord{ID: "C", Active: true},
			domain.RegistryRecord{ID: "D", PolygonText: "sin datos", Active: true},
		),
		fetchDetailFn: func(ctx context.Context, number string) (*domain.RegistryRecord, bool) {
			if number == "C" {
				return &domain.RegistryRecord{ID: "C", PolygonText: polygon}, true
			}
			return nil, false
		},
	}
	pub := &mockPublisher{}
	cache := newMockCache()
	svc := usecases.NewFieldService(reg, nil, cache, pub)

	res, err := svc.FieldsByTaxID(context.Background(), taxID, usecases.RegistryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(res.Fields))
	}
	a, c := res.Fields[0], res.Fields[1]
	if a.Label != "Campo_1_Estancia A" {
		t.Errorf("unexpected label %q", a.Label)
	}
	if c.Label != "Campo_2_Sin_titular" {
		t.Errorf("unexpected label %q", c.Label)
	}
	if c.OwnerName != "" {
		t.Errorf("owner must stay empty, got %q", c.OwnerName)
	}
	if a.Locality != "Junín" || a.DeclaredAreaHectares != 50 {
		t.Errorf("metadata not carried: %+v", a)
	}
	want := domain.RegistryProvenance(taxID, "A")
	if a.Provenance != want {
		t.Errorf("provenance = %+v, want %+v", a.Provenance, want)
	}
	if got := a.Ring.Coordinates()[0]; got != (domain.Coordinate{Lon: -60.1, Lat: -34.5}) {
		t.Errorf("first vertex = %+v, axes not swapped", got)
	}
	if a.ComputedAreaHectares <= 0 || a.Geohash == "" {
		t.Errorf("derived metadata missing: area=%f geohash=%q", a.ComputedAreaHectares, a.Geohash)
	}

	if strings.Join(reg.detailCalls, ",") != "C,D" {
		t.Errorf("detail lookups = %v, want [C D]", reg.detailCalls)
	}

	sum := res.Summary
	if sum.Inputs != 3 || sum.Accepted != 2 || sum.Rejected != 1 {
		t.Errorf("summary counts = %d/%d/%d", sum.Inputs, sum.Accepted, sum.Rejected)
	}
	if sum.Source != domain.ProvenanceRegistry || sum.Origin != taxID || sum.BatchID == "" {
		t.Errorf("summary identity wrong: %+v", sum)
	}
	if sum.Pagination != domain.PaginationExhausted || len(sum.Warnings) != 0 {
		t.Errorf("unexpected pagination summary: %+v", sum)
	}
	if len(pub.published) != 1 {
		t.Errorf("expected 1 published result, got %d", len(pub.published))
	}
	if cache.sets != 1 {
		t.Errorf("expected complete result to be cached")
	}
}

func TestFieldsByTaxID_IncludeInactive(t *testing.T) {
	reg := &mockRegistry{fetchPagesFn: pages(
		domain.RegistryRecord{ID: "A", PolygonText: polygon, Active: true},
		domain.RegistryRecord{ID: "B", OwnerName: "Baja", PolygonText: polygon, Active: false},
	)}
	svc := usecases.NewFieldService(reg, nil, nil, nil)

	res, err := svc.FieldsByTaxID(context.Background(), taxID, usecases.RegistryOptions{IncludeInactive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(res.Fields))
	}
	if res.Fields[1].Label != "Campo_2_Baja" {
		t.Errorf("unexpected label %q", res.Fields[1].Label)
	}
}

func TestFieldsByTaxID_PartialPagination(t *testing.T) {
	reg := &mockRegistry{
		fetchPagesFn: func(ctx context.Context, id string) (*domain.PageReport, error) {
			return &domain.PageReport{
				Records: []domain.RegistryRecord{{ID: "A", PolygonText: polygon, Active: true}},
				Pages:   1,
				State:   domain.PaginationFailed,
				Err:     &domain.NetworkError{Op: "GET consultaPorCuit", URL: "http://registry", StatusCode: 503},
			}, nil
		},
	}
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(reg, nil, cache, pub)

	res, err := svc.FieldsByTaxID(context.Background(), taxID, usecases.RegistryOptions{})
	if err != nil {
		t.Fatalf("partial pagination must not be an error: %v", err)
	}
	if len(res.Fields) != 1 {
		t.Fatalf("expected the first page's field, got %d", len(res.Fields))
	}
	if res.Summary.Pagination != domain.PaginationFailed || len(res.Summary.Warnings) != 1 {
		t.Errorf("summary should flag the failure: %+v", res.Summary)
	}
	if cache.sets != 0 {
		t.Errorf("partial results must not be cached")
	}
	if len(pub.published) != 1 {
		t.Errorf("partial results are still published")
	}
}

func TestFieldsByTaxID_CacheHit(t *testing.T) {
	cached := domain.ExtractionResult{
		Summary: domain.ExtractionSummary{BatchID: "cached", Origin: taxID},
		Fields:  []domain.Field{{SourceID: "A", Label: "Campo_1_X", Ring: mustRing(t, polygon)}},
	}
	data, _ := json.Marshal(cached)
	cache := newMockCache()
	cache.data["fields:cuit:"+taxID+":all=false"] = data

	reg := &mockRegistry{}
	svc := usecases.NewFieldService(reg, nil, cache, nil)

	res, err := svc.FieldsByTaxID(context.Background(), taxID, usecases.RegistryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.pageCalls != 0 {
		t.Errorf("cache hit must not reach the registry")
	}
	if res.Summary.BatchID != "cached" || res.Fields[0].Ring.Len() != 4 {
		t.Errorf("unexpected cached result: %+v", res)
	}
}

func TestFieldsByTaxID_PublishFailureIgnored(t *testing.T) {
	reg := &mockRegistry{fetchPagesFn: pages(domain.RegistryRecord{ID: "A", PolygonText: polygon, Active: true})}
	svc := usecases.NewFieldService(reg, nil, nil, &mockPublisher{err: errors.New("nats down")})

	res, err := svc.FieldsByTaxID(context.Background(), taxID, usecases.RegistryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 1 {
		t.Errorf("expected 1 field, got %d", len(res.Fields))
	}
}

func TestBuildFromMarkers(t *testing.T) {
	ring := mustRing(t, polygon)
	fields := usecases.BuildFromMarkers(domain.DocumentMarkers{
		Archive:  "campos.kmz",
		Document: "doc.kml",
		Markers: []domain.Marker{
			{Index: 1, Label: "Lote 1", Ring: ring},
			{Index: 3, Label: "Polygon_3", Ring: ring},
		},
	})

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].SourceID != "campos.kmz/doc.kml#1" || fields[1].SourceID != "campos.kmz/doc.kml#3" {
		t.Errorf("unexpected source ids %q, %q", fields[0].SourceID, fields[1].SourceID)
	}
	if fields[1].Label != "Polygon_3" {
		t.Errorf("unexpected label %q", fields[1].Label)
	}
	if fields[0].Provenance != domain.ArchiveProvenance("campos.kmz", "doc.kml") {
		t.Errorf("unexpected provenance %+v", fields[0].Provenance)
	}
	if fields[0].OwnerName != "" || fields[0].DeclaredAreaHectares != 0 {
		t.Errorf("markup fields carry no registry metadata")
	}
}

func TestBuildFromMarkers_CrossedBoundaryHasNoLocation(t *testing.T) {
	bowTie, err := domain.NewRing([]domain.Coordinate{
		{Lon: -60.60, Lat: -33.90}, {Lon: -60.59, Lat: -33.89}, {Lon: -60.59, Lat: -33.90}, {Lon: -60.60, Lat: -33.89},
	})
	if err != nil {
		t.Fatal(err)
	}
	fields := usecases.BuildFromMarkers(domain.DocumentMarkers{
		Document: "lotes.kml",
		Markers: []domain.Marker{
			{Index: 1, Label: "Cruzado", Ring: bowTie},
			{Index: 2, Label: "Bueno", Ring: mustRing(t, polygon)},
		},
	})

	crossed, good := fields[0], fields[1]
	if crossed.Centroid != nil || crossed.Geohash != "" || crossed.ComputedAreaHectares != 0 {
		t.Errorf("crossed ring got location metadata: centroid=%v geohash=%q area=%f",
			crossed.Centroid, crossed.Geohash, crossed.ComputedAreaHectares)
	}
	if crossed.PerimeterMeters <= 0 {
		t.Error("perimeter is still reported for a crossed ring")
	}
	if good.Centroid == nil || good.Geohash == "" {
		t.Errorf("valid ring lost its centroid: %+v", good)
	}
}

func TestFieldsFromArchive(t *testing.T) {
	ring := mustRing(t, polygon)
	archives := &mockArchives{readFn: func(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error) {
		return &domain.ArchiveContents{
			Name: name,
			Documents: []domain.DocumentMarkers{
				{Archive: name, Document: "a.kml",
					Markers:  []domain.Marker{{Index: 1, Label: "Norte", Ring: ring}},
					Rejected: []domain.RejectedMarker{{Index: 2, Label: "Corto", Reason: "insufficient points"}}},
				{Archive: name, Document: "b.kml",
					Markers: []domain.Marker{{Index: 1, Label: "Sur", Ring: ring}}},
			},
			Failed: []string{"c.kml: not XML"},
		}, nil
	}}
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(&mockRegistry{}, archives, nil, pub)

	res, err := svc.FieldsFromArchive(context.Background(), "lote.kmz", []byte("zip"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(res.Fields))
	}
	if res.Fields[1].SourceID != "lote.kmz/b.kml#1" {
		t.Errorf("unexpected source id %q", res.Fields[1].SourceID)
	}
	sum := res.Summary
	if sum.Inputs != 3 || sum.Accepted != 2 || sum.Rejected != 1 {
		t.Errorf("summary counts = %d/%d/%d", sum.Inputs, sum.Accepted, sum.Rejected)
	}
	if sum.Source != domain.ProvenanceArchive || len(sum.Warnings) != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(pub.published) != 1 {
		t.Errorf("expected result to be published")
	}
}

func TestExtractArchives_FailureIsolated(t *testing.T) {
	ring := mustRing(t, polygon)
	archives := &mockArchives{readFn: func(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error) {
		if name == "vacio.kmz" {
			return nil, &domain.FormatError{Source: name, Reason: "no .kml entries"}
		}
		return &domain.ArchiveContents{Name: name, Documents: []domain.DocumentMarkers{
			{Archive: name, Document: "a.kml", Markers: []domain.Marker{{Index: 1, Label: "L", Ring: ring}}},
		}}, nil
	}}
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(&mockRegistry{}, archives, nil, pub)

	out := svc.ExtractArchives(context.Background(), []usecases.ArchiveUpload{
		{Name: "vacio.kmz"}, {Name: "bueno.kmz"},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(out))
	}
	var fe *domain.FormatError
	if !errors.As(out[0].Err, &fe) || out[0].Result != nil {
		t.Errorf("first upload should fail with FormatError, got %+v", out[0])
	}
	if out[1].Err != nil || len(out[1].Result.Fields) != 1 {
		t.Errorf("second upload should succeed, got %+v", out[1])
	}
	if len(pub.published) != 1 {
		t.Errorf("only the successful upload is published")
	}
}

func TestRecordByNumber(t *testing.T) {
	reg := &mockRegistry{fetchDetailFn: func(ctx context.Context, number string) (*domain.RegistryRecord, bool) {
		switch number {
		case "R-1":
			return &domain.RegistryRecord{ID: "R-1", OwnerName: "Ana", PolygonText: polygon}, true
		case "R-2":
			return &domain.RegistryRecord{ID: "R-2"}, true
		}
		return nil, false
	}}
	svc := usecases.NewFieldService(reg, nil, nil, nil)
	ctx := context.Background()

	view, err := svc.RecordByNumber(ctx, "R-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Field == nil || view.Field.Label != "Campo_1_Ana" {
		t.Errorf("expected decoded field, got %+v", view.Field)
	}

	view, err = svc.RecordByNumber(ctx, "R-2")
	if err != nil || view.Field != nil {
		t.Errorf("record without polygon: view=%+v err=%v", view, err)
	}
	if len(reg.detailCalls) != 2 {
		t.Errorf("expected one lookup per call, got %v", reg.detailCalls)
	}

	if _, err := svc.RecordByNumber(ctx, "R-9"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	var verr *domain.ValidationError
	if _, err := svc.RecordByNumber(ctx, " "); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestForget_DropsBothCacheEntries(t *testing.T) {
	reg := &mockRegistry{fetchPagesFn: pages(domain.RegistryRecord{ID: "A", PolygonText: polygon, Active: true})}
	cache := newMockCache()
	svc := usecases.NewFieldService(reg, nil, cache, nil)
	ctx := context.Background()

	svc.FieldsByTaxID(ctx, taxID, usecases.RegistryOptions{})
	svc.FieldsByTaxID(ctx, taxID, usecases.RegistryOptions{IncludeInactive: true})
	if len(cache.data) != 2 {
		t.Fatalf("expected 2 cached extractions, got %d", len(cache.data))
	}

	if err := svc.Forget(ctx, taxID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if len(cache.data) != 0 {
		t.Errorf("cache still holds %d entries", len(cache.data))
	}

	svc.FieldsByTaxID(ctx, taxID, usecases.RegistryOptions{})
	if reg.pageCalls != 3 {
		t.Errorf("expected registry to be queried again, got %d page calls", reg.pageCalls)
	}
}

func TestForget_InvalidID(t *testing.T) {
	svc := usecases.NewFieldService(&mockRegistry{}, nil, newMockCache(), nil)

	var verr *domain.ValidationError
	if err := svc.Forget(context.Background(), "nope"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
