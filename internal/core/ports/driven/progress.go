package driven

import "github.com/custodia-labs/permit-assets/internal/core/domain"

// ProgressReporter receives pipeline progress events.
// Implementations must be safe for concurrent use by stage workers.
type ProgressReporter interface {
	// StageStarted is called before a stage dispatches its batch.
	StageStarted(step string, total int)

	// DocumentDone is called once per document of the batch.
	DocumentDone(step string, id domain.DocumentID, outcome Outcome)

	// StageFinished is called with the stage summary.
	StageFinished(summary domain.RunSummary)
}

// Outcome is the result of one document in a stage.
type Outcome string

// Document outcomes.
const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// NopProgress discards progress events.
type NopProgress struct{}

// StageStarted implements ProgressReporter.
func (NopProgress) StageStarted(string, int) {}

// DocumentDone implements ProgressReporter.
func (NopProgress) DocumentDone(string, domain.DocumentID, Outcome) {}

// StageFinished implements ProgressReporter.
func (NopProgress) StageFinished(domain.RunSummary) {}
