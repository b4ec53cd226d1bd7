package kml

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/pkg/telemetry"
)

// Reader implements ports.ArchiveReader on top of Open and ExtractMarkers.
type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadArchive opens an upload and traverses every markup document in it,
// one at a time. A document that is not well-formed is recorded in Failed
// and the rest are still read; only when no document can be parsed does the
// upload itself fail.
func (r *Reader) ReadArchive(ctx context.Context, name string, data []byte) (*domain.ArchiveContents, error) {
	_, span := telemetry.Tracer().Start(ctx, "kml.ReadArchive")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrArchive, name))

	docs, err := Open(name, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &domain.ArchiveContents{Name: name}
	var firstErr error
	for _, doc := range docs {
		res, err := ExtractMarkers(doc)
		if err != nil {
			var fe *domain.FormatError
			if !errors.As(err, &fe) {
				return nil, err
			}
			r.logger.Warn("skipping unparsable document", "archive", name, "document", doc.Name, "error", err)
			out.Failed = append(out.Failed, fe.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, rej := range res.Rejected {
			r.logger.Debug("marker dropped", "archive", name, "document", doc.Name,
				"index", rej.Index, "label", rej.Label, "reason", rej.Reason)
		}
		out.Documents = append(out.Documents, *res)
	}

	if len(out.Documents) == 0 {
		span.RecordError(firstErr)
		return nil, firstErr
	}
	return out, nil
}
