package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Mica14-AgCode/VISU/internal/adapters/http"
	"github.com/Mica14-AgCode/VISU/internal/adapters/kml"
	natsadapter "github.com/Mica14-AgCode/VISU/internal/adapters/nats"
	"github.com/Mica14-AgCode/VISU/internal/adapters/senasa"
	"github.com/Mica14-AgCode/VISU/internal/adapters/valkey"
	"github.com/Mica14-AgCode/VISU/internal/core/ports"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
	"github.com/Mica14-AgCode/VISU/internal/pkg/config"
	"github.com/Mica14-AgCode/VISU/internal/pkg/logging"
	"github.com/Mica14-AgCode/VISU/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("visu-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	deps := &http.Dependencies{
		MaxUploadFiles: cfg.Server.MaxUploadFiles,
		RegistryRPM:    cfg.Server.RegistryRPM,
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(valkey.Options{Addr: cfg.Valkey.Addr, Password: cfg.Valkey.Password, Prefix: cfg.Valkey.Prefix})
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS
	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, "visu-api", logger)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			deps.Jobs = pub
			deps.NATS = pub.Conn()
		}
	}

	registry := senasa.NewClient(senasa.FromSettings(cfg.Registry), senasa.WithLogger(logger))

	deps.Fields = usecases.NewFieldService(registry, kml.NewReader(logger), cache, publisher,
		usecases.WithCacheTTL(cfg.Valkey.TTLS),
		usecases.WithFieldLogger(logger),
	)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB << 20,
		AppName:      "VISU API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Registry extractions can be long; give them up to 30s to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
