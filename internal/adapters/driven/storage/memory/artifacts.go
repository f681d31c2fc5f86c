// Package memory provides in-memory implementations of driven ports.
// They are used in tests and for dry runs; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

type artifactKey struct {
	id    domain.DocumentID
	stage domain.Stage
}

// ArtifactStore is an in-memory implementation of driven.ArtifactStore.
type ArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[artifactKey][]byte
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		artifacts: make(map[artifactKey][]byte),
	}
}

// Exists reports whether the artifact has been written.
func (s *ArtifactStore) Exists(_ context.Context, id domain.DocumentID, stage domain.Stage) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.artifacts[artifactKey{id, stage}]
	return ok, nil
}

// Read returns a copy of the artifact payload.
func (s *ArtifactStore) Read(_ context.Context, id domain.DocumentID, stage domain.Stage) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.artifacts[artifactKey{id, stage}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// Write stores a copy of the payload. Existing keys are never overwritten.
func (s *ArtifactStore) Write(_ context.Context, id domain.DocumentID, stage domain.Stage, payload []byte) error {
	if !stage.Persisted() {
		return &domain.WriteError{Document: id, Stage: stage,
			Err: fmt.Errorf("%w: stage %s is not persisted", domain.ErrInvalidInput, stage)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := artifactKey{id, stage}
	if _, ok := s.artifacts[key]; ok {
		return &domain.WriteError{Document: id, Stage: stage, Err: domain.ErrAlreadyExists}
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.artifacts[key] = stored
	return nil
}

// List returns the documents with an artifact for stage, sorted.
func (s *ArtifactStore) List(_ context.Context, stage domain.Stage) ([]domain.DocumentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.DocumentID
	for key := range s.artifacts {
		if key.stage == stage {
			ids = append(ids, key.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Len returns the number of stored artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}
