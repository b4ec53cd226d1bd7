package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware writes one line per finished request. The message is the
// matched route pattern, so /v1/registry/:taxId/fields groups across CUITs;
// the tax ID itself travels as an attribute when a handler resolved one.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		bytesIn := c.Request().Header.ContentLength()

		err := c.Next()

		status := c.Response().StatusCode()
		level := accessLevel(status, err)
		msg := c.Method() + " " + c.Route().Path

		log := LoggerFromCtx(c.UserContext())
		if !log.Enabled(c.UserContext(), level) {
			return err
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if bytesIn > 0 {
			attrs = append(attrs, slog.Int("bytes_in", bytesIn))
		}
		if q := string(c.Request().URI().QueryString()); q != "" {
			attrs = append(attrs, slog.String("query", q))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		log.LogAttrs(c.UserContext(), level, msg, attrs...)
		return err
	}
}

func accessLevel(status int, err error) slog.Level {
	switch {
	case err != nil, status >= fiber.StatusInternalServerError:
		return slog.LevelError
	case status >= fiber.StatusBadRequest:
		return slog.LevelWarn
	case status == fiber.StatusNotModified:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
