package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// RequestIDLogMiddleware scopes a logger carrying the Fiber request ID to the
// request. Handlers narrow it further with withTaxID.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, _ := c.Locals("requestid").(string); rid != "" {
			l := slog.Default().With("request_id", rid)
			c.SetUserContext(context.WithValue(c.UserContext(), loggerKey, l))
		}
		return c.Next()
	}
}

// withTaxID narrows the request logger once a handler has resolved the
// canonical tax ID it is working on.
func withTaxID(c *fiber.Ctx, taxID string) *slog.Logger {
	l := LoggerFromCtx(c.UserContext()).With("tax_id", taxID)
	c.SetUserContext(context.WithValue(c.UserContext(), loggerKey, l))
	return l
}

// LoggerFromCtx returns the request-scoped logger, or slog.Default.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
