// Package ollama provides an extraction backend using a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.ExtractionBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:8b"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama backend.
type Config struct {
	// Name identifies the backend in routing and logs (default: ollama).
	Name string

	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.1:8b).
	Model string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration
}

// Backend sends extraction prompts to Ollama's /api/generate endpoint with
// JSON output mode enabled.
type Backend struct {
	client  *http.Client
	name    string
	baseURL string
	model   string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Format  string   `json:"format,omitempty"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewBackend creates a new Ollama backend.
func NewBackend(cfg Config) *Backend {
	if cfg.Name == "" {
		cfg.Name = "ollama"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// Model returns the model name.
func (b *Backend) Model() string {
	return b.model
}

// Extract runs the prompt with deterministic sampling and returns the raw output.
func (b *Backend) Extract(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:   b.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: &options{Temperature: 0},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.NewPermanentError(b.name, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", domain.NewPermanentError(b.name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", llm.ClassifyTransport(b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", llm.ClassifyStatus(b.name, resp)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", llm.DecodeError(b.name, err)
	}
	if genResp.Error != "" {
		return "", domain.NewTransientError(b.name, fmt.Errorf("ollama error: %s", genResp.Error))
	}

	return genResp.Response, nil
}

// Ping validates the server is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return llm.ClassifyTransport(b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.ClassifyStatus(b.name, resp)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
