package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

// JobQueue enqueues tax id extractions for the background worker.
type JobQueue interface {
	RequestTaxID(ctx context.Context, req *domain.TaxIDRequest) error
}

// Pinger is implemented by backing stores checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers. Everything but
// Fields is optional.
type Dependencies struct {
	Fields *usecases.FieldService
	Jobs   JobQueue
	NATS   *nats.Conn
	Cache  Pinger

	// MaxUploadFiles caps the number of files in one archive upload.
	MaxUploadFiles int
	// RegistryRPM caps registry lookups per client IP per minute; zero
	// uses the default of 30.
	RegistryRPM int
}
