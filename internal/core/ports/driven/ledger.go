package driven

import (
	"context"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// RunLedger records what each pipeline run did. It is an audit trail only;
// artifacts remain the source of truth for resume decisions.
type RunLedger interface {
	// StartRun records the beginning of a run.
	StartRun(ctx context.Context, run domain.RunRecord) error

	// RecordStage stores one stage summary and its failures.
	RecordStage(ctx context.Context, runID string, summary domain.RunSummary) error

	// FinishRun marks the run as finished.
	FinishRun(ctx context.Context, run domain.RunRecord) error

	// LastRun returns the most recent run.
	// Returns domain.ErrNotFound if no run has been recorded.
	LastRun(ctx context.Context) (*domain.RunRecord, error)

	// Failures returns the failures recorded for a run.
	Failures(ctx context.Context, runID string) ([]domain.FailureRecord, error)
}
