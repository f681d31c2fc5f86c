// Package messages defines Bubbletea message types for the progress view.
// The progress reporter turns pipeline events into these messages.
package messages

import (
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// StageStarted is sent before a stage dispatches its batch.
type StageStarted struct {
	Step  string
	Total int
}

// DocumentDone is sent once per document of the batch.
type DocumentDone struct {
	Step     string
	Document domain.DocumentID
	Outcome  driven.Outcome
}

// StageFinished carries a stage summary.
type StageFinished struct {
	Summary domain.RunSummary
}

// RunFinished is sent when the pipeline returns and the view should exit.
type RunFinished struct{}
