package driven

import "context"

// ExtractionBackend sends a structured-extraction prompt to a language model
// and returns the raw model output.
//
// Implementations classify every failure once, at the boundary, by returning
// a *domain.BackendError with Class transient (rate limit, timeout,
// connection failure, server error) or permanent. Callers never inspect
// error strings.
type ExtractionBackend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Extract sends the prompt and returns the model's text output,
	// which is expected to be JSON.
	Extract(ctx context.Context, prompt string) (string, error)

	// Ping validates the backend is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
