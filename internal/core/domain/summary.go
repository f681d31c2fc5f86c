package domain

import (
	"errors"
	"time"
)

// DocumentFailure records why one document failed a stage.
type DocumentFailure struct {
	Document DocumentID
	Stage    Stage
	Err      error
}

// RunSummary counts the outcome of one stage over a batch of documents.
type RunSummary struct {
	// Step is the stage step name (translate, extract, flatten).
	Step      string
	Input     Stage
	Output    Stage
	Processed int
	Skipped   int
	Failed    int
	// Failures are ordered by the position of the document in the batch.
	Failures []DocumentFailure
	Duration time.Duration
	// Cancelled is set when dispatch stopped before the whole batch was seen.
	Cancelled bool
}

// Total returns the number of documents the stage saw.
func (s RunSummary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

// PipelineReport is the result of one pipeline run.
type PipelineReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []RunSummary
	States     map[DocumentState]int
	// AwaitingText counts documents that have no raw text yet.
	AwaitingText int
	// DuplicateSites counts metadata rows that resolved to an existing identity.
	DuplicateSites int
	// DroppedAssets counts extracted entries discarded for lacking asset_type.
	DroppedAssets int
	Rows          int
	// MissingMetadata lists documents skipped at flatten time.
	MissingMetadata []DocumentID
	// Cancelled is set when the run stopped at a batch boundary.
	Cancelled bool
}

// Failed returns the total number of failed documents across stages.
func (r *PipelineReport) Failed() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Failed
	}
	return n
}

// RunRecord is a persisted summary of a past run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []RunSummary
}

// FailureRecord is a persisted document failure from a past run.
type FailureRecord struct {
	RunID    string
	Document DocumentID
	Stage    Stage
	Message  string
	Kind     string
	At       time.Time
}

// FailureKind names the error taxonomy entry of err for reporting.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(err, ErrWriteFailed):
		return "write_error"
	default:
		return "error"
	}
}

// DocumentStatus describes one document for status listings.
type DocumentStatus struct {
	Document  DocumentID
	Site      SiteMetadata
	State     DocumentState
	Latest    Stage
	LastError string
}

// StatusReport summarises the artifact store against the site table.
type StatusReport struct {
	Documents []DocumentStatus
	Counts    map[DocumentState]int
	LastRun   *RunRecord
}
