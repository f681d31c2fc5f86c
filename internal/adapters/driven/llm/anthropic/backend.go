// Package anthropic provides an extraction backend using the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.ExtractionBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 4096

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// systemPrompt keeps the model's reply machine-readable.
const systemPrompt = "You reply with a single JSON document and nothing else."

// Config holds configuration for the Anthropic backend.
type Config struct {
	// Name identifies the backend in routing and logs (default: anthropic).
	Name string

	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration
}

// Backend sends extraction prompts to the Messages API.
type Backend struct {
	client  *http.Client
	name    string
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewBackend creates a new Anthropic backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Name == "" {
		cfg.Name = "anthropic"
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
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// Model returns the model name.
func (b *Backend) Model() string {
	return b.model
}

// Extract runs the prompt and returns the concatenated text blocks.
func (b *Backend) Extract(ctx context.Context, prompt string) (string, error) {
	reqBody := messagesRequest{
		Model:       b.model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   DefaultMaxTokens,
		System:      systemPrompt,
		Temperature: 0,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.NewPermanentError(b.name, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", domain.NewPermanentError(b.name, fmt.Errorf("create request: %w", err))
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", llm.ClassifyTransport(b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", llm.ClassifyStatus(b.name, resp)
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", llm.DecodeError(b.name, err)
	}

	if msgResp.Error != nil {
		return "", domain.NewTransientError(b.name, fmt.Errorf("anthropic error: %s", msgResp.Error.Message))
	}

	if len(msgResp.Content) == 0 {
		return "", domain.NewTransientError(b.name, errors.New("anthropic: no response content returned"))
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	return result.String(), nil
}

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	b.setHeaders(req)

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

func (b *Backend) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}
