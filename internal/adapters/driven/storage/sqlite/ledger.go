package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// runLedger implements driven.RunLedger.
type runLedger struct {
	store *Store
}

var _ driven.RunLedger = (*runLedger)(nil)

// StartRun records the beginning of a run.
func (l *runLedger) StartRun(ctx context.Context, run domain.RunRecord) error {
	_, err := l.store.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at) VALUES (?, ?, NULL)",
		run.ID, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// RecordStage stores one stage summary and its failures in a transaction.
func (l *runLedger) RecordStage(ctx context.Context, runID string, summary domain.RunSummary) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM run_stages WHERE run_id = ?", runID).Scan(&seq); err != nil {
		return fmt.Errorf("getting stage sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_stages (run_id, seq, step, input, output, processed, skipped, failed, duration_ms, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, seq, summary.Step, string(summary.Input), string(summary.Output),
		summary.Processed, summary.Skipped, summary.Failed,
		summary.Duration.Milliseconds(), boolToInt(summary.Cancelled))
	if err != nil {
		return fmt.Errorf("saving stage: %w", err)
	}

	now := formatTime(time.Now())
	for _, f := range summary.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_failures (run_id, document_id, stage, kind, message, at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, string(f.Document), string(f.Stage), domain.FailureKind(f.Err), msg, now)
		if err != nil {
			return fmt.Errorf("saving failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stage: %w", err)
	}
	return nil
}

// FinishRun marks the run as finished.
func (l *runLedger) FinishRun(ctx context.Context, run domain.RunRecord) error {
	res, err := l.store.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ? WHERE id = ?", formatNullableTime(run.FinishedAt), run.ID)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LastRun returns the most recently started run with its stages.
func (l *runLedger) LastRun(ctx context.Context) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var startedAt string
	var finishedAt sql.NullString
	err := l.store.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at FROM runs ORDER BY rowid DESC LIMIT 1").
		Scan(&run.ID, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
	run.FinishedAt = parseNullableTime(finishedAt)

	stages, err := l.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return &run, nil
}

func (l *runLedger) stages(ctx context.Context, runID string) ([]domain.RunSummary, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT step, input, output, processed, skipped, failed, duration_ms, cancelled
		FROM run_stages WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.RunSummary
	for rows.Next() {
		var s domain.RunSummary
		var input, output string
		var durationMs int64
		var cancelled int
		if err := rows.Scan(&s.Step, &input, &output, &s.Processed, &s.Skipped, &s.Failed,
			&durationMs, &cancelled); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		s.Input = domain.Stage(input)
		s.Output = domain.Stage(output)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.Cancelled = cancelled != 0
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// Failures returns the failures recorded for a run, in insertion order.
func (l *runLedger) Failures(ctx context.Context, runID string) ([]domain.FailureRecord, error) {
	var exists int
	err := l.store.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking run: %w", err)
	}

	rows, err := l.store.db.QueryContext(ctx, `
		SELECT document_id, stage, kind, message, at
		FROM run_failures WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []domain.FailureRecord
	for rows.Next() {
		var f domain.FailureRecord
		var doc, stage string
		var at sql.NullString
		if err := rows.Scan(&doc, &stage, &f.Kind, &f.Message, &at); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.RunID = runID
		f.Document = domain.DocumentID(doc)
		f.Stage = domain.Stage(stage)
		f.At = parseNullableTime(at)
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
