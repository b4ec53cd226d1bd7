package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/core/usecases"
)

// RegistrySyncActivities holds the activity implementations for the
// registry sync workflow.
type RegistrySyncActivities struct {
	Fields *usecases.FieldService
}

// ForgetTaxID drops cached extractions so the next one reaches the registry.
func (a *RegistrySyncActivities) ForgetTaxID(ctx context.Context, taxID string) error {
	if err := a.Fields.Forget(ctx, taxID); err != nil {
		return classify(err)
	}
	return nil
}

// ExtractTaxID runs one extraction and returns its summary. The fields
// themselves travel on the event bus, not through workflow history.
func (a *RegistrySyncActivities) ExtractTaxID(ctx context.Context, req domain.TaxIDRequest) (domain.ExtractionSummary, error) {
	res, err := a.Fields.FieldsByTaxID(ctx, req.TaxID, usecases.RegistryOptions{IncludeInactive: req.IncludeInactive})
	if err != nil {
		return domain.ExtractionSummary{}, classify(err)
	}
	activity.GetLogger(ctx).Info("registry sync extraction",
		"tax_id", req.TaxID, "accepted", res.Summary.Accepted, "pagination", res.Summary.Pagination)
	return res.Summary, nil
}

// classify marks input errors as non-retryable so a bad CUIT never loops.
func classify(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return temporal.NewNonRetryableApplicationError(verr.Error(), "ValidationError", err)
	}
	return fmt.Errorf("registry sync: %w", err)
}
