package main

import (
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Mica14-AgCode/VISU/internal/adapters/kml"
	natsadapter "github.com/Mica14-AgCode/VISU/internal/adapters/nats"
	"github.com/Mica14-AgCode/VISU/internal/adapters/senasa"
	"github.com/Mica14-AgCode/VISU/internal/adapters/valkey"
	"github.com/Mica14-AgCode/VISU/internal/core/ports"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
	"github.com/Mica14-AgCode/VISU/internal/pkg/config"
	"github.com/Mica14-AgCode/VISU/internal/pkg/logging"
	"github.com/Mica14-AgCode/VISU/internal/workflows"
)

// syncworker runs RegistrySyncWorkflow for scheduled, multi-CUIT
// extractions driven by Temporal.
func main() {
	cfg, err := config.Load("visu-syncworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

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

	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, "visu-syncworker", logger)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	registry := senasa.NewClient(senasa.FromSettings(cfg.Registry), senasa.WithLogger(logger))

	fields := usecases.NewFieldService(registry, kml.NewReader(logger), cache, publisher,
		usecases.WithCacheTTL(cfg.Valkey.TTLS),
		usecases.WithFieldLogger(logger),
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RegistrySyncWorkflow)
	w.RegisterActivity(&workflows.RegistrySyncActivities{Fields: fields})

	slog.Info("registry sync worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
