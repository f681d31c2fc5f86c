// Package filesystem stores pipeline artifacts as files, one directory per stage.
//
// Layout:
//
//	<root>/raw_text/<document-id>.txt
//	<root>/translated_text/<document-id>.txt
//	<root>/structured_result/<document-id>.json
//	<root>/flattened_rows/<document-id>.json
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is a directory-backed implementation of driven.ArtifactStore.
//
// Writes go to a temporary file in the stage directory, are synced, and are
// then linked into place. A reader therefore sees a complete artifact or
// none, and a crash mid-write leaves only a temporary file behind.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates a store rooted at root, creating stage directories.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: artifact root is required", domain.ErrInvalidInput)
	}
	for _, stage := range domain.PersistedStages() {
		if err := os.MkdirAll(filepath.Join(root, string(stage)), 0700); err != nil {
			return nil, fmt.Errorf("creating stage directory: %w", err)
		}
	}
	s := &ArtifactStore{root: root}
	s.cleanTemp()
	return s, nil
}

// Root returns the store directory.
func (s *ArtifactStore) Root() string {
	return s.root
}

// Path returns the file path of an artifact.
func (s *ArtifactStore) Path(id domain.DocumentID, stage domain.Stage) string {
	return filepath.Join(s.root, string(stage), string(id)+stage.Extension())
}

// Exists reports whether the artifact has been written.
func (s *ArtifactStore) Exists(_ context.Context, id domain.DocumentID, stage domain.Stage) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(id, stage))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w", err)
}

// Read returns the artifact payload.
func (s *ArtifactStore) Read(_ context.Context, id domain.DocumentID, stage domain.Stage) ([]byte, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(id, stage))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return b, nil
}

// Write atomically creates the artifact. An existing artifact is never
// replaced; writing it again returns domain.ErrAlreadyExists.
func (s *ArtifactStore) Write(_ context.Context, id domain.DocumentID, stage domain.Stage, payload []byte) error {
	if !stage.Persisted() {
		return &domain.WriteError{Document: id, Stage: stage,
			Err: fmt.Errorf("%w: stage %s is not persisted", domain.ErrInvalidInput, stage)}
	}
	if err := id.Validate(); err != nil {
		return &domain.WriteError{Document: id, Stage: stage, Err: err}
	}

	final := s.Path(id, stage)
	dir := filepath.Dir(final)

	tmp, err := os.CreateTemp(dir, "."+string(id)+"-*.tmp")
	if err != nil {
		return &domain.WriteError{Document: id, Stage: stage, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return &domain.WriteError{Document: id, Stage: stage, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &domain.WriteError{Document: id, Stage: stage, Err: fmt.Errorf("sync temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &domain.WriteError{Document: id, Stage: stage, Err: fmt.Errorf("close temp file: %w", err)}
	}

	if err := publish(tmpPath, final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return &domain.WriteError{Document: id, Stage: stage, Err: domain.ErrAlreadyExists}
		}
		return &domain.WriteError{Document: id, Stage: stage, Err: err}
	}
	syncDir(dir)
	return nil
}

// List returns the documents with an artifact for stage, sorted.
func (s *ArtifactStore) List(_ context.Context, stage domain.Stage) ([]domain.DocumentID, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(stage)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	ext := stage.Extension()
	var ids []domain.DocumentID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		id := domain.DocumentID(strings.TrimSuffix(name, ext))
		if id.Validate() != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// publish moves tmp to final without replacing an existing final.
// A hard link fails if final exists. Filesystems without hard links fall
// back to a check followed by rename.
func publish(tmp, final string) error {
	err := os.Link(tmp, final)
	if err == nil || errors.Is(err, os.ErrExist) {
		return err
	}
	logger.Debug("hard link unavailable, falling back to rename: %v", err)
	if _, statErr := os.Stat(final); statErr == nil {
		return os.ErrExist
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// syncDir flushes a directory entry so a published file survives a crash.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

// cleanTemp removes temporary files left behind by interrupted writes.
func (s *ArtifactStore) cleanTemp() {
	for _, stage := range domain.PersistedStages() {
		matches, err := filepath.Glob(filepath.Join(s.root, string(stage), ".*.tmp"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err == nil {
				logger.Debug("removed stale temp file %s", m)
			}
		}
	}
}
