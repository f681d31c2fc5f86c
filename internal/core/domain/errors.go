package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an artifact has already been written.
	// Artifacts are append-only, so this is returned instead of overwriting.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, stage or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrMissingInput indicates a stage ran before its input artifact existed.
	// This is a pipeline-ordering bug, not a transient condition.
	ErrMissingInput = errors.New("missing input artifact")

	// ErrExtractionFailed indicates every extraction attempt for a document failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrMissingMetadata indicates no site metadata matched a document at flatten time.
	ErrMissingMetadata = errors.New("missing site metadata")

	// ErrWriteFailed indicates an artifact could not be persisted.
	ErrWriteFailed = errors.New("artifact write failed")

	// ErrBackendUnavailable indicates no extraction backend is configured or reachable.
	ErrBackendUnavailable = errors.New("extraction backend unavailable")
)

// MissingInputError reports that a stage's input artifact was absent.
type MissingInputError struct {
	Document DocumentID
	Stage    Stage
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: %s has no %s artifact", ErrMissingInput, e.Document, e.Stage)
}

// Is reports whether target is ErrMissingInput.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// WriteError reports a failed artifact write. The stage is not complete
// for the document and will be retried on the next run.
type WriteError struct {
	Document DocumentID
	Stage    Stage
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Document, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrWriteFailed.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}

// MissingMetadataError reports a document without a site metadata record.
type MissingMetadataError struct {
	Document DocumentID
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingMetadata, e.Document)
}

// Is reports whether target is ErrMissingMetadata.
func (e *MissingMetadataError) Is(target error) bool {
	return target == ErrMissingMetadata
}

// ExtractionFailedError reports that no attempt produced a valid result.
// Attempts holds the error of every attempt in order.
type ExtractionFailedError struct {
	Document DocumentID
	Attempts []error
}

func (e *ExtractionFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %s", ErrExtractionFailed, e.Document)
	}
	parts := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		parts[i] = fmt.Sprintf("attempt %d: %v", i+1, err)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrExtractionFailed, e.Document, strings.Join(parts, "; "))
}

// Is reports whether target is ErrExtractionFailed.
func (e *ExtractionFailedError) Is(target error) bool {
	return target == ErrExtractionFailed
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *ExtractionFailedError) Unwrap() []error {
	return e.Attempts
}

// FailureClass classifies a backend failure. Adapters decide the class once,
// at the boundary, so routing never inspects error strings.
type FailureClass string

const (
	// FailureTransient is retryable: rate limits, timeouts, connection failures, 5xx.
	FailureTransient FailureClass = "transient"

	// FailurePermanent is not retryable: bad requests, auth failures.
	FailurePermanent FailureClass = "permanent"
)

// BackendError is returned by extraction backend adapters.
type BackendError struct {
	Backend    string
	Class      FailureClass
	StatusCode int
	// RetryAfter is the server-requested backoff in seconds, zero when absent.
	RetryAfter int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Backend, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Backend, e.Class, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is retryable.
func (e *BackendError) Transient() bool {
	return e.Class == FailureTransient
}

// NewTransientError wraps err as a retryable backend failure.
func NewTransientError(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Class: FailureTransient, Err: err}
}

// NewPermanentError wraps err as a non-retryable backend failure.
func NewPermanentError(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Class: FailurePermanent, Err: err}
}

// IsTransient reports whether err carries a transient backend classification.
func IsTransient(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return false
}
