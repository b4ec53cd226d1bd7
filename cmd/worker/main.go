package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mica14-AgCode/VISU/internal/adapters/kml"
	natsadapter "github.com/Mica14-AgCode/VISU/internal/adapters/nats"
	"github.com/Mica14-AgCode/VISU/internal/adapters/senasa"
	"github.com/Mica14-AgCode/VISU/internal/adapters/valkey"
	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/ports"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
	"github.com/Mica14-AgCode/VISU/internal/pkg/config"
	"github.com/Mica14-AgCode/VISU/internal/pkg/logging"
	"github.com/Mica14-AgCode/VISU/internal/pkg/telemetry"
)

// The worker consumes CUIT extraction jobs from NATS and publishes each
// result on fields.extracted.registry.
func main() {
	cfg, err := config.Load("visu-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, "visu-worker-pub", logger)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "visu-worker", logger)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(valkey.Options{Addr: cfg.Valkey.Addr, Password: cfg.Valkey.Password, Prefix: cfg.Valkey.Prefix})
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
		}
	}

	registry := senasa.NewClient(senasa.FromSettings(cfg.Registry), senasa.WithLogger(logger))

	fields := usecases.NewFieldService(registry, kml.NewReader(logger), cache, pub,
		usecases.WithCacheTTL(cfg.Valkey.TTLS),
		usecases.WithFieldLogger(logger),
	)

	if err := consume(ctx, sub, fields); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("worker started", "subject", natsadapter.SubjectTaxIDRequests)
	<-ctx.Done()
	slog.Info("worker stopping")
}

// consume runs one extraction per job. The result reaches consumers through
// the publisher wired into fields.
func consume(ctx context.Context, jobs ports.EventSubscriber, fields *usecases.FieldService) error {
	return jobs.SubscribeTaxIDRequests(ctx, func(ctx context.Context, req *domain.TaxIDRequest) error {
		slog.Info("extraction job", "request_id", req.RequestID, "tax_id", req.TaxID)
		_, err := fields.FieldsByTaxID(ctx, req.TaxID, usecases.RegistryOptions{IncludeInactive: req.IncludeInactive})
		return err
	})
}
