package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// DefaultWorkers is the number of documents processed concurrently within a stage.
const DefaultWorkers = domain.DefaultWorkers

// ComputeFunc produces a stage's output payload from its input payload.
type ComputeFunc func(ctx context.Context, id domain.DocumentID, input []byte) ([]byte, error)

// StageStep describes one stage transition.
type StageStep struct {
	Name    string
	Input   domain.Stage
	Output  domain.Stage
	Compute ComputeFunc
}

// StageRunner executes a stage over a batch of documents.
//
// A document whose output artifact exists is skipped. A missing input
// artifact fails the document with a MissingInputError. Compute and write
// failures fail the document. No per-document failure aborts the batch.
type StageRunner struct {
	store    driven.ArtifactStore
	workers  int
	progress driven.ProgressReporter
}

// NewStageRunner creates a stage runner. Progress may be nil.
func NewStageRunner(store driven.ArtifactStore, workers int, progress driven.ProgressReporter) *StageRunner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if progress == nil {
		progress = driven.NopProgress{}
	}
	return &StageRunner{
		store:    store,
		workers:  workers,
		progress: progress,
	}
}

type docOutcome struct {
	dispatched bool
	outcome    driven.Outcome
	err        error
}

// Run processes docs through step and returns the batch summary.
//
// Each document is handled by exactly one worker, so concurrent writes always
// target distinct keys. Cancelling ctx stops dispatch; documents already
// dispatched run to completion on a context detached from the cancellation.
func (r *StageRunner) Run(ctx context.Context, rc *RunContext, docs []domain.DocumentID, step StageStep) domain.RunSummary {
	start := time.Now()
	log := logger.For(step.Name)
	r.progress.StageStarted(step.Name, len(docs))

	summary := domain.RunSummary{
		Step:   step.Name,
		Input:  step.Input,
		Output: step.Output,
	}

	results := make([]docOutcome, len(docs))
	work := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, id := range docs {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		g.Go(func() error {
			outcome, err := r.runOne(work, rc, id, step)
			results[i] = docOutcome{dispatched: true, outcome: outcome, err: err}
			r.progress.DocumentDone(step.Name, id, outcome)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if !res.dispatched {
			continue
		}
		switch res.outcome {
		case driven.OutcomeProcessed:
			summary.Processed++
		case driven.OutcomeSkipped:
			summary.Skipped++
		case driven.OutcomeFailed:
			summary.Failed++
			summary.Failures = append(summary.Failures, domain.DocumentFailure{
				Document: docs[i],
				Stage:    step.Output,
				Err:      res.err,
			})
		}
	}
	summary.Duration = time.Since(start)

	log.Info("processed=%d skipped=%d failed=%d in %s",
		summary.Processed, summary.Skipped, summary.Failed, summary.Duration.Round(time.Millisecond))
	if summary.Cancelled {
		log.Warn("cancelled: %d of %d documents dispatched", summary.Total(), len(docs))
	}
	r.progress.StageFinished(summary)
	return summary
}

func (r *StageRunner) runOne(ctx context.Context, rc *RunContext, id domain.DocumentID, step StageStep) (driven.Outcome, error) {
	log := logger.For(step.Name)

	fail := func(err error) (driven.Outcome, error) {
		log.Warn("%s: %v", id, err)
		rc.Fail(id, step.Output, err)
		return driven.OutcomeFailed, err
	}

	exists, err := r.store.Exists(ctx, id, step.Output)
	if err != nil {
		return fail(fmt.Errorf("check %s: %w", step.Output, err))
	}
	if exists {
		log.Debug("%s: %s exists, skipping", id, step.Output)
		rc.Advance(id, domain.StateAfter(step.Output))
		return driven.OutcomeSkipped, nil
	}

	input, err := r.store.Read(ctx, id, step.Input)
	if errors.Is(err, domain.ErrNotFound) {
		return fail(&domain.MissingInputError{Document: id, Stage: step.Input})
	}
	if err != nil {
		return fail(fmt.Errorf("read %s: %w", step.Input, err))
	}

	output, err := step.Compute(ctx, id, input)
	if err != nil {
		return fail(err)
	}

	if err := r.store.Write(ctx, id, step.Output, output); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Debug("%s: %s written concurrently, skipping", id, step.Output)
			rc.Advance(id, domain.StateAfter(step.Output))
			return driven.OutcomeSkipped, nil
		}
		var we *domain.WriteError
		if !errors.As(err, &we) {
			err = &domain.WriteError{Document: id, Stage: step.Output, Err: err}
		}
		return fail(err)
	}

	rc.Advance(id, domain.StateAfter(step.Output))
	log.Debug("%s: wrote %s (%d bytes)", id, step.Output, len(output))
	return driven.OutcomeProcessed, nil
}
