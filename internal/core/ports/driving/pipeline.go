package driving

import (
	"context"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// Step names a runnable pipeline step.
type Step string

// Pipeline steps, in order.
const (
	// StepTranslate turns raw_text into translated_text.
	StepTranslate Step = "translate"

	// StepExtract reduces translated_text and writes structured_result.
	StepExtract Step = "extract"

	// StepFlatten joins structured_result with site metadata into flattened_rows.
	StepFlatten Step = "flatten"
)

// Steps returns all steps in order.
func Steps() []Step {
	return []Step{StepTranslate, StepExtract, StepFlatten}
}

// IsValid returns true if the step is recognised.
func (s Step) IsValid() bool {
	switch s {
	case StepTranslate, StepExtract, StepFlatten:
		return true
	default:
		return false
	}
}

// RunOptions narrows a pipeline run.
type RunOptions struct {
	// Documents restricts the run to these identities. Empty means every site.
	Documents []domain.DocumentID
}

// PipelineService runs and inspects the extraction pipeline.
type PipelineService interface {
	// Run executes every step over the document set, stage by stage.
	// Per-document failures are reported in the result, never returned.
	Run(ctx context.Context, opts RunOptions) (*domain.PipelineReport, error)

	// RunStep executes a single step over the document set.
	RunStep(ctx context.Context, step Step, opts RunOptions) (*domain.PipelineReport, error)

	// Status derives each document's state from the artifact store.
	Status(ctx context.Context) (*domain.StatusReport, error)

	// Rows returns every flat row in stable order.
	Rows(ctx context.Context) ([]domain.FlatRow, error)

	// Excerpt previews the relevance reducer output for one document.
	Excerpt(ctx context.Context, id domain.DocumentID) (*domain.Excerpt, error)
}

// IngestSummary counts the outcome of an ingest.
type IngestSummary struct {
	Imported int
	Skipped  int
	Failed   int
	Errors   []error
}

// IngestService imports raw text produced by the text-extraction collaborator.
type IngestService interface {
	// IngestFiles imports files named <document-id>.<ext> as raw_text artifacts.
	// Files whose artifact already exists are skipped.
	IngestFiles(ctx context.Context, paths []string) IngestSummary

	// IngestDir imports every supported file in dir.
	IngestDir(ctx context.Context, dir string) (IngestSummary, error)
}
