package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags 200 GET bodies with a weak ETag and answers 304 when
// the client already holds it. Responses marked no-store, such as partial
// registry extractions, are left untagged so a client never revalidates
// against an incomplete field list.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		res := c.Response()
		if c.Method() != fiber.MethodGet || res.StatusCode() != fiber.StatusOK || len(res.Body()) == 0 {
			return nil
		}
		if bytes.Contains(res.Header.Peek(fiber.HeaderCacheControl), []byte(cacheNoStore)) {
			return nil
		}

		sum := sha256.Sum256(res.Body())
		tag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, tag)

		if matchesAny(c.Get(fiber.HeaderIfNoneMatch), tag) {
			c.Status(fiber.StatusNotModified)
			res.ResetBody()
		}
		return nil
	}
}

// matchesAny applies weak comparison to an If-None-Match list.
func matchesAny(header, tag string) bool {
	if header == "" {
		return false
	}
	tag = strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
