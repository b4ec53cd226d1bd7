package http

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

const (
	formatGeoJSON   = "geojson"
	contentGeoJSON  = "application/geo+json"
	defaultMaxFiles = 20
)

// FieldsByTaxIDHandler extracts the fields registered to a CUIT.
// Query: all=true keeps deregistered records, format=geojson switches the body.
func FieldsByTaxIDHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := usecases.RegistryOptions{IncludeInactive: c.QueryBool("all", false)}
		if id, err := domain.ParseTaxID(c.Params("taxId")); err == nil {
			withTaxID(c, id)
		}

		res, err := deps.Fields.FieldsByTaxID(c.UserContext(), c.Params("taxId"), opts)
		if err != nil {
			return writeError(c, err)
		}

		// Partial results must not be reused by caches.
		if res.Summary.Pagination == domain.PaginationFailed {
			c.Set(fiber.HeaderCacheControl, cacheNoStore)
		}
		if c.Query("format") == formatGeoJSON {
			return c.JSON(domain.ToFeatureCollection(res.Fields), contentGeoJSON)
		}
		return c.JSON(res)
	}
}

// RegistryRecordHandler returns one registry record and its decoded field.
func RegistryRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Fields.RecordByNumber(c.UserContext(), c.Params("number"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(view)
	}
}

// archiveOutcome is one entry of a multi-file upload response.
type archiveOutcome struct {
	Name    string                    `json:"name"`
	Summary *domain.ExtractionSummary `json:"summary,omitempty"`
	Fields  []domain.Field            `json:"fields,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// UploadArchivesHandler extracts fields from one or more KMZ/KML files sent
// as multipart "file" parts. A single unreadable file answers 422; in a
// batch each file reports its own error and the request only fails when
// every file does.
func UploadArchivesHandler(deps *Dependencies) fiber.Handler {
	maxFiles := deps.MaxUploadFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return errBadRequest(c, "expected multipart/form-data with file parts")
		}
		files := form.File["file"]
		if len(files) == 0 {
			return errBadRequest(c, `at least one "file" part is required`)
		}
		if len(files) > maxFiles {
			return errBadRequest(c, "too many files in one upload")
		}

		uploads := make([]usecases.ArchiveUpload, 0, len(files))
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return errBadRequest(c, "cannot read upload "+fh.Filename)
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return errBadRequest(c, "cannot read upload "+fh.Filename)
			}
			uploads = append(uploads, usecases.ArchiveUpload{Name: fh.Filename, Data: data})
		}

		outcomes := deps.Fields.ExtractArchives(c.UserContext(), uploads)

		if len(outcomes) == 1 {
			o := outcomes[0]
			if o.Err != nil {
				return writeError(c, o.Err)
			}
			if c.Query("format") == formatGeoJSON {
				return c.JSON(domain.ToFeatureCollection(o.Result.Fields), contentGeoJSON)
			}
			return c.JSON(o.Result)
		}

		var (
			body   []archiveOutcome
			all    []domain.Field
			failed int
		)
		for _, o := range outcomes {
			item := archiveOutcome{Name: o.Name}
			if o.Err != nil {
				item.Error = o.Err.Error()
				failed++
			} else {
				item.Summary = &o.Result.Summary
				item.Fields = o.Result.Fields
				all = append(all, o.Result.Fields...)
			}
			body = append(body, item)
		}
		if failed == len(outcomes) {
			return writeError(c, outcomes[0].Err)
		}
		if c.Query("format") == formatGeoJSON {
			return c.JSON(domain.ToFeatureCollection(all), contentGeoJSON)
		}
		return c.JSON(fiber.Map{"archives": body})
	}
}

// NormalizeTaxIDHandler formats a CUIT given with or without separators.
func NormalizeTaxIDHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("taxId")
		id, err := domain.NormalizeTaxID(raw)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"input": raw, "tax_id": id})
	}
}

// EnqueueTaxIDHandler hands a CUIT extraction to the background worker.
func EnqueueTaxIDHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Jobs == nil {
			return errUnavailable(c, "job queue not configured")
		}
		id, err := domain.ParseTaxID(c.Params("taxId"))
		if err != nil {
			return writeError(c, err)
		}

		log := withTaxID(c, id)

		req := &domain.TaxIDRequest{
			RequestID:       uuid.NewString(),
			TaxID:           id,
			IncludeInactive: c.QueryBool("all", false),
		}
		if err := deps.Jobs.RequestTaxID(c.UserContext(), req); err != nil {
			log.Error("enqueue extraction", "error", err)
			return errUnavailable(c, "could not enqueue extraction")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"request_id":  req.RequestID,
			"tax_id":      req.TaxID,
			"enqueued_at": time.Now().UTC(),
		})
	}
}
