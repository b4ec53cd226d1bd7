package http

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is set at build time with -ldflags.
var Version = "dev"

const readyTimeout = 3 * time.Second

var errDisconnected = errors.New("disconnected")

// HealthHandler is the liveness probe. It never touches a dependency.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()
	goVersion := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
			"go":      goVersion,
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

type probe struct {
	name string
	run  func(context.Context) error
}

// readinessProbes lists the optional backends wired into deps. A backend
// that is not configured is reported but never fails readiness.
func readinessProbes(deps *Dependencies) (probes []probe, skipped []string) {
	if deps.NATS != nil {
		nc := deps.NATS
		probes = append(probes, probe{"nats", func(context.Context) error {
			if !nc.IsConnected() {
				return errDisconnected
			}
			return nil
		}})
	} else {
		skipped = append(skipped, "nats")
	}

	if deps.Cache != nil {
		probes = append(probes, probe{"cache", deps.Cache.Ping})
	} else {
		skipped = append(skipped, "cache")
	}
	return probes, skipped
}

// ReadyHandler runs every configured probe in parallel and answers 503 if any
// of them fails.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes, skipped := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		results := make([]error, len(probes))
		var wg sync.WaitGroup
		for i, p := range probes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = p.run(ctx)
			}()
		}
		wg.Wait()

		checks := make(map[string]string, len(probes)+len(skipped))
		for _, name := range skipped {
			checks[name] = "not configured"
		}
		ready := true
		for i, p := range probes {
			if err := results[i]; err != nil {
				checks[p.name] = "error: " + err.Error()
				ready = false
				continue
			}
			checks[p.name] = "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
