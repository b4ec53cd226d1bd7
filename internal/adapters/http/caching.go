package http

import (
	"github.com/gofiber/fiber/v2"
)

const cacheNoStore = "no-store"

// cachePolicies maps route patterns to the Cache-Control sent on a 200 GET.
var cachePolicies = map[string]string{
	"/v1/health":                   "no-cache",
	"/v1/ready":                    "no-cache",
	"/metrics":                     "no-cache",
	"/v1/taxid/:taxId":             "public, max-age=86400",
	"/v1/registry/records/:number": "public, max-age=600",
	"/v1/registry/:taxId/fields":   "public, max-age=300",
	"/docs":                        "public, max-age=3600",
	"/docs/openapi.yaml":           "public, max-age=3600",
	"/docs/openapi.json":           "public, max-age=3600",
}

// CachingMiddleware sets Cache-Control on GET responses from the matched
// route. Handlers that set their own header win and non-200 answers are
// never stored.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			c.Set(fiber.HeaderCacheControl, cacheNoStore)
			return err
		}
		if policy, ok := cachePolicies[c.Route().Path]; ok {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}
