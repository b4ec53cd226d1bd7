package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "class"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visu",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visu",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "route"})

	// Registry client metrics
	RegistryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "registry",
		Name:      "requests_total",
		Help:      "Total requests sent to the cadastral registry",
	}, []string{"endpoint", "outcome"})

	RegistryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visu",
		Subsystem: "registry",
		Name:      "request_duration_seconds",
		Help:      "Latency of cadastral registry requests",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"endpoint"})

	RegistryPagination = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "registry",
		Name:      "paginations_total",
		Help:      "Paginated fetches by terminal state",
	}, []string{"state"})

	RegistryPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "registry",
		Name:      "pages_total",
		Help:      "Registry pages fetched successfully",
	})

	// Extraction metrics
	FieldsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "extraction",
		Name:      "fields_total",
		Help:      "Fields produced, by source",
	}, []string{"source"})

	GeometryRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "extraction",
		Name:      "geometry_rejected_total",
		Help:      "Markers or records dropped because no ring could be decoded",
	}, []string{"source"})

	ArchivesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "extraction",
		Name:      "archives_rejected_total",
		Help:      "Uploads rejected with a format error",
	})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visu",
		Subsystem: "extraction",
		Name:      "duration_seconds",
		Help:      "End-to-end extraction latency",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"source"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "visu",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visu",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics labelled by route pattern, so one
// series covers every CUIT. Requests no route matched share "unmatched".
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		method := c.Method()
		code := c.Response().StatusCode()
		// The error handler has not written the status yet.
		if err != nil {
			code = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code/100)+"xx").Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(method, route).Observe(float64(len(c.Response().Body())))
		return err
	}
}

// Handler serves the default Prometheus registry on a Fiber route.
func Handler() fiber.Handler {
	serve := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		serve(c.Context())
		return nil
	}
}
