package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/Mica14-AgCode/VISU/internal/pkg/metrics"
)

const defaultRegistryRPM = 30

const (
	// A CUIT with many establishments needs one paced request per page and
	// possibly one per record, so registry routes get a generous budget.
	registryTimeout = 5 * time.Minute
	archiveTimeout  = 60 * time.Second
	shortTimeout    = 15 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	app.Use(securityHeaders)

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	// Everything that can reach the upstream registry shares one per-IP budget.
	limit := registryLimiter(deps.RegistryRPM)

	v1 := app.Group("/v1")
	v1.Get("/taxid/:taxId", NormalizeTaxIDHandler())
	v1.Post("/archives", timeout.NewWithContext(UploadArchivesHandler(deps), archiveTimeout))

	registry := v1.Group("/registry", limit)
	registry.Get("/records/:number", timeout.NewWithContext(RegistryRecordHandler(deps), shortTimeout))
	registry.Get("/:taxId/fields", timeout.NewWithContext(FieldsByTaxIDHandler(deps), registryTimeout))
	registry.Post("/:taxId/jobs", timeout.NewWithContext(EnqueueTaxIDHandler(deps), shortTimeout))

	app.Post("/graphql", limit, timeout.NewWithContext(GraphQLHandler(deps), registryTimeout))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set(fiber.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
	c.Set("X-API-Version", "1.0.0")
	return c.Next()
}

func registryLimiter(rpm int) fiber.Handler {
	if rpm <= 0 {
		rpm = defaultRegistryRPM
	}
	return limiter.New(limiter.Config{
		Max:          rpm,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many registry lookups, please try again later")
		},
	})
}
