package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// artifactStore implements driven.ArtifactStore.
type artifactStore struct {
	store *Store
}

var _ driven.ArtifactStore = (*artifactStore)(nil)

// Exists reports whether the artifact has been written.
func (s *artifactStore) Exists(ctx context.Context, id domain.DocumentID, stage domain.Stage) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM artifacts WHERE document_id = ? AND stage = ?", string(id), string(stage)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking artifact: %w", err)
	}
	return true, nil
}

// Read returns the artifact payload.
func (s *artifactStore) Read(ctx context.Context, id domain.DocumentID, stage domain.Stage) ([]byte, error) {
	var payload []byte
	err := s.store.db.QueryRowContext(ctx,
		"SELECT payload FROM artifacts WHERE document_id = ? AND stage = ?", string(id), string(stage)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return payload, nil
}

// Write inserts the artifact. The row is committed whole or not at all, and an
// existing key is reported as domain.ErrAlreadyExists.
func (s *artifactStore) Write(ctx context.Context, id domain.DocumentID, stage domain.Stage, payload []byte) error {
	if !stage.Persisted() {
		return &domain.WriteError{Document: id, Stage: stage,
			Err: fmt.Errorf("%w: stage %s is not persisted", domain.ErrInvalidInput, stage)}
	}
	if payload == nil {
		payload = []byte{}
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO artifacts (document_id, stage, payload, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id, stage) DO NOTHING
	`, string(id), string(stage), payload, len(payload), formatTime(time.Now()))
	if err != nil {
		return &domain.WriteError{Document: id, Stage: stage, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &domain.WriteError{Document: id, Stage: stage, Err: err}
	}
	if n == 0 {
		return &domain.WriteError{Document: id, Stage: stage, Err: domain.ErrAlreadyExists}
	}
	return nil
}

// List returns the documents with an artifact for stage, sorted.
func (s *artifactStore) List(ctx context.Context, stage domain.Stage) ([]domain.DocumentID, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT document_id FROM artifacts WHERE stage = ? ORDER BY document_id", string(stage))
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var ids []domain.DocumentID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		ids = append(ids, domain.DocumentID(id))
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return ids, nil
}
