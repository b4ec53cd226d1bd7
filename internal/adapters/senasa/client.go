// Package senasa talks to the SENASA RENSPA registry, which lists the
// agricultural establishments registered to a CUIT.
package senasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/pkg/config"
	"github.com/Mica14-AgCode/VISU/internal/pkg/metrics"
	"github.com/Mica14-AgCode/VISU/internal/pkg/telemetry"
)

const (
	DefaultBaseURL = "https://aps.senasa.gob.ar/restapiprod/servicios/renspa"

	endpointList   = "consultaPorCuit"
	endpointDetail = "consultaPorNumero"

	maxBodyBytes = 16 << 20
)

// Config controls paging and pacing. Zero values are replaced by defaults
// except RequestDelay, where zero disables the delay.
type Config struct {
	BaseURL       string
	PageSize      int
	RequestDelay  time.Duration
	ListTimeout   time.Duration
	DetailTimeout time.Duration
	MaxPages      int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		PageSize:      10,
		RequestDelay:  500 * time.Millisecond,
		ListTimeout:   15 * time.Second,
		DetailTimeout: 10 * time.Second,
		MaxPages:      200,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	if c.ListTimeout <= 0 {
		c.ListTimeout = d.ListTimeout
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = d.DetailTimeout
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	return c
}

// SleepFunc waits d before a request. It returns early with ctx's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client implements ports.RegistryClient. It keeps no state between calls
// and is safe for concurrent use; each call is strictly sequential.
type Client struct {
	cfg    Config
	http   *http.Client
	sleep  SleepFunc
	logger *slog.Logger
}

// FromSettings maps the registry section of the service configuration.
func FromSettings(r config.RegistryConfig) Config {
	return Config{
		BaseURL:       r.BaseURL,
		PageSize:      r.PageSize,
		RequestDelay:  r.RequestDelay(),
		ListTimeout:   r.ListTimeout(),
		DetailTimeout: r.DetailTimeout(),
		MaxPages:      r.MaxPages,
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg.withDefaults(),
		http:   &http.Client{},
		sleep:  sleepContext,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchByTaxID returns every record the registry lists for taxID. A failed
// page ends pagination and the records gathered so far are returned
// without an error.
func (c *Client) FetchByTaxID(ctx context.Context, taxID string) ([]domain.RegistryRecord, error) {
	report, err := c.FetchPages(ctx, taxID)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

// FetchPages walks consultaPorCuit from offset 0 until the registry reports
// no more pages (PaginationExhausted) or a request fails (PaginationFailed).
// No page is retried. The only returned error is a ValidationError for a
// non-canonical id, raised before any request.
func (c *Client) FetchPages(ctx context.Context, taxID string) (*domain.PageReport, error) {
	id, err := domain.ParseTaxID(taxID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "senasa.FetchPages")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrTaxID, id))

	report := &domain.PageReport{Records: []domain.RegistryRecord{}}
	log := c.logger.With("tax_id", id)

	for offset := 0; ; offset += c.cfg.PageSize {
		if report.Pages >= c.cfg.MaxPages {
			log.Warn("registry pagination stopped at page limit", "pages", report.Pages)
			report.State = domain.PaginationExhausted
			break
		}

		q := url.Values{}
		q.Set("cuit", id)
		q.Set("offset", strconv.Itoa(offset))

		page, err := c.get(ctx, endpointList, q, c.cfg.ListTimeout)
		if err != nil {
			log.Warn("registry page failed, keeping partial results",
				"offset", offset, "records", len(report.Records), "error", err)
			report.State = domain.PaginationFailed
			report.Err = err
			span.RecordError(err)
			span.SetStatus(codes.Error, "pagination failed")
			break
		}
		if len(page.Items) == 0 {
			report.State = domain.PaginationExhausted
			break
		}

		report.Pages++
		metrics.RegistryPages.Inc()
		for _, item := range page.Items {
			report.Records = append(report.Records, item.toDomain())
		}
		log.Debug("registry page fetched", "offset", offset, "items", len(page.Items), "has_more", page.HasMore)

		if !page.HasMore {
			report.State = domain.PaginationExhausted
			break
		}
	}

	metrics.RegistryPagination.WithLabelValues(string(report.State)).Inc()
	span.SetAttributes(
		attribute.Int(telemetry.AttrPages, report.Pages),
		attribute.String(telemetry.AttrPagination, string(report.State)),
	)
	return report, nil
}

// FetchDetail looks up one record by RENSPA number. Any failure, including
// an empty answer, yields (nil, false).
func (c *Client) FetchDetail(ctx context.Context, recordNumber string) (*domain.RegistryRecord, bool) {
	recordNumber = strings.TrimSpace(recordNumber)
	if recordNumber == "" {
		return nil, false
	}

	ctx, span := telemetry.Tracer().Start(ctx, "senasa.FetchDetail")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrRecordID, recordNumber))

	q := url.Values{}
	q.Set("numero", recordNumber)

	resp, err := c.get(ctx, endpointDetail, q, c.cfg.DetailTimeout)
	if err != nil {
		c.logger.Warn("registry detail failed", "renspa", recordNumber, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail failed")
		return nil, false
	}
	if len(resp.Items) == 0 {
		return nil, false
	}
	rec := resp.Items[0].toDomain()
	return &rec, true
}

// DecodePolygon implements ports.RegistryClient.
func (c *Client) DecodePolygon(text string) (domain.Ring, error) {
	return DecodePolygon(text)
}

// get sleeps the configured delay, then performs one GET. Every failure is
// returned as a *domain.NetworkError.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, timeout time.Duration) (*listResponse, error) {
	u := c.cfg.BaseURL + "/" + endpoint + "?" + q.Encode()
	fail := func(status int, err error) error {
		metrics.RegistryRequests.WithLabelValues(endpoint, "error").Inc()
		return &domain.NetworkError{Op: "GET " + endpoint, URL: u, StatusCode: status, Err: err}
	}

	if err := c.sleep(ctx, c.cfg.RequestDelay); err != nil {
		return nil, fail(0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RegistryRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fail(resp.StatusCode, nil)
	}

	var out listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}

	metrics.RegistryRequests.WithLabelValues(endpoint, "ok").Inc()
	return &out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
