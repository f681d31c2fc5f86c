package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure RunLedger implements the interface.
var _ driven.RunLedger = (*RunLedger)(nil)

// RunLedger is an in-memory implementation of driven.RunLedger.
type RunLedger struct {
	mu       sync.RWMutex
	runs     map[string]*domain.RunRecord
	order    []string
	failures map[string][]domain.FailureRecord
}

// NewRunLedger creates a new in-memory run ledger.
func NewRunLedger() *RunLedger {
	return &RunLedger{
		runs:     make(map[string]*domain.RunRecord),
		failures: make(map[string][]domain.FailureRecord),
	}
}

// StartRun records the beginning of a run.
func (l *RunLedger) StartRun(_ context.Context, run domain.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[run.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r := run
	l.runs[run.ID] = &r
	l.order = append(l.order, run.ID)
	return nil
}

// RecordStage stores one stage summary and its failures.
func (l *RunLedger) RecordStage(_ context.Context, runID string, summary domain.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	run, ok := l.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	run.Stages = append(run.Stages, summary)
	now := time.Now().UTC()
	for _, f := range summary.Failures {
		l.failures[runID] = append(l.failures[runID], domain.FailureRecord{
			RunID:    runID,
			Document: f.Document,
			Stage:    f.Stage,
			Message:  f.Err.Error(),
			Kind:     domain.FailureKind(f.Err),
			At:       now,
		})
	}
	return nil
}

// FinishRun marks the run as finished.
func (l *RunLedger) FinishRun(_ context.Context, run domain.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.runs[run.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.FinishedAt = run.FinishedAt
	return nil
}

// LastRun returns the most recently started run.
func (l *RunLedger) LastRun(_ context.Context) (*domain.RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.order) == 0 {
		return nil, domain.ErrNotFound
	}
	r := *l.runs[l.order[len(l.order)-1]]
	r.Stages = append([]domain.RunSummary(nil), r.Stages...)
	return &r, nil
}

// Failures returns the failures recorded for a run.
func (l *RunLedger) Failures(_ context.Context, runID string) ([]domain.FailureRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.runs[runID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.FailureRecord(nil), l.failures[runID]...), nil
}
