package ports

import (
	"context"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// RegistryClient fetches cadastral records from the remote registry.
type RegistryClient interface {
	// FetchPages pages through every record of a taxpayer. A failed page
	// ends pagination; the records gathered so far are still returned.
	FetchPages(ctx context.Context, taxID string) (*domain.PageReport, error)
	// FetchDetail returns a single record, or false when it cannot be fetched.
	FetchDetail(ctx context.Context, recordNumber string) (*domain.RegistryRecord, bool)
	// DecodePolygon turns the registry's polygon text into a ring. Filtering
	// outcomes are domain.ErrNoGeometry and domain.ErrInsufficientPoints.
	DecodePolygon(text string) (domain.Ring, error)
}

// ArchiveReader opens an uploaded KMZ/KML and decodes its markers.
type ArchiveReader interface {
	ReadArchive(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error)
}

// EventPublisher publishes extraction results to a message broker.
type EventPublisher interface {
	PublishExtraction(ctx context.Context, result *domain.ExtractionResult) error
}

// EventSubscriber consumes extraction requests from a message broker.
type EventSubscriber interface {
	SubscribeTaxIDRequests(ctx context.Context, handler func(ctx context.Context, req *domain.TaxIDRequest) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, keys ...string) error
}
