package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// RegistrySyncInput lists the CUITs to extract in one run.
type RegistrySyncInput struct {
	TaxIDs          []string
	IncludeInactive bool

	// Refresh drops cached extractions before fetching.
	Refresh bool

	// Pause between two CUITs, on top of the per-request delay the
	// registry client already applies.
	Pause time.Duration
}

// RegistrySyncResult reports one summary per extracted CUIT and the CUITs
// whose extraction failed outright.
type RegistrySyncResult struct {
	Summaries []domain.ExtractionSummary
	Failed    []string
}

// RegistrySyncWorkflow extracts the fields of several CUITs one after the
// other. A failing CUIT is recorded and the run moves on; a CUIT whose
// pagination stopped early still yields its partial summary.
func RegistrySyncWorkflow(ctx workflow.Context, input RegistrySyncInput) (RegistrySyncResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting registry sync", "taxIds", len(input.TaxIDs))

	// The registry is never retried within a request, and a whole CUIT
	// extraction is not retried either; the next scheduled run picks it up.
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var result RegistrySyncResult
	for i, taxID := range input.TaxIDs {
		if i > 0 && input.Pause > 0 {
			if err := workflow.Sleep(ctx, input.Pause); err != nil {
				return result, err
			}
		}

		if input.Refresh {
			if err := workflow.ExecuteActivity(ctx, "ForgetTaxID", taxID).Get(ctx, nil); err != nil {
				logger.Warn("cache refresh failed", "taxId", taxID, "error", err)
			}
		}

		req := domain.TaxIDRequest{
			RequestID:       workflow.GetInfo(ctx).WorkflowExecution.ID + "/" + taxID,
			TaxID:           taxID,
			IncludeInactive: input.IncludeInactive,
		}
		var summary domain.ExtractionSummary
		if err := workflow.ExecuteActivity(ctx, "ExtractTaxID", req).Get(ctx, &summary); err != nil {
			logger.Warn("extraction failed", "taxId", taxID, "error", err)
			result.Failed = append(result.Failed, taxID)
			continue
		}
		result.Summaries = append(result.Summaries, summary)
	}

	logger.Info("Registry sync finished", "extracted", len(result.Summaries), "failed", len(result.Failed))
	return result, nil
}
