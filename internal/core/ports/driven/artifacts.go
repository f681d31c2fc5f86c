package driven

import (
	"context"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// ArtifactStore persists stage artifacts keyed by (document, stage).
//
// Artifacts are append-only: there is no update or delete. A Write that
// returns nil is durable, and a crash during Write never leaves a key that
// Exists reports as present with partial content.
type ArtifactStore interface {
	// Exists reports whether the artifact has been written.
	Exists(ctx context.Context, id domain.DocumentID, stage domain.Stage) (bool, error)

	// Read returns the artifact payload.
	// Returns domain.ErrNotFound if the artifact does not exist.
	Read(ctx context.Context, id domain.DocumentID, stage domain.Stage) ([]byte, error)

	// Write stores the payload atomically.
	// Returns a *domain.WriteError on failure; the error wraps
	// domain.ErrAlreadyExists when the key was already written.
	Write(ctx context.Context, id domain.DocumentID, stage domain.Stage, payload []byte) error

	// List returns the documents that have an artifact for stage, sorted.
	List(ctx context.Context, stage domain.Stage) ([]domain.DocumentID, error)
}
