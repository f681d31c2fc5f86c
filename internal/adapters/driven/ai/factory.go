// Package ai builds extraction backends from configuration.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Backends holds the extraction backends in routing order.
type Backends struct {
	List     []driven.ExtractionBackend
	Warnings []string // Non-fatal issues, e.g. a backend that did not answer a ping.
}

// Close releases every backend.
func (b *Backends) Close() {
	for _, backend := range b.List {
		if err := backend.Close(); err != nil {
			logger.Debug("close backend %s: %v", backend.Name(), err)
		}
	}
}

// CreateBackends builds every backend named in the extraction order, each
// wrapped in a rate limiter. The call timeout applies to each HTTP request.
func CreateBackends(settings domain.ExtractionSettings) (*Backends, error) {
	ordered, err := settings.OrderedBackends()
	if err != nil {
		return nil, err
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: extraction.order is empty", domain.ErrBackendUnavailable)
	}

	result := &Backends{}
	for _, bs := range ordered {
		backend, err := CreateBackend(bs, settings.Timeout)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("backend %s: %w", bs.Name, err)
		}
		result.List = append(result.List, llm.NewRateLimitedBackend(backend, llm.RateLimitConfig{
			RequestsPerSecond: bs.RequestsPerSecond,
			BurstSize:         bs.Burst,
		}))
	}
	return result, nil
}

// CreateAndValidateBackends builds the configured backends and pings each one.
// Backends missing an API key are left out of the order. An unreachable
// backend is kept and reported as a warning, since the router falls back
// past it. It fails only when no backend answers.
func CreateAndValidateBackends(ctx context.Context, settings domain.ExtractionSettings) (*Backends, error) {
	settings, skipped := ConfiguredOnly(settings)
	result, err := CreateBackends(settings)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, skipped...)

	var errs []error
	for _, backend := range result.List {
		if err := ping(ctx, backend); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s unreachable: %v", backend.Name(), err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(result.List) {
		result.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, errors.Join(errs...))
	}
	return result, nil
}

// ConfiguredOnly removes backends that cannot be built from the order and
// returns a warning for each. Unknown names are kept so CreateBackends
// reports them.
func ConfiguredOnly(settings domain.ExtractionSettings) (domain.ExtractionSettings, []string) {
	var warnings []string
	order := make([]string, 0, len(settings.Order))
	for _, name := range settings.Order {
		b, ok := settings.Backends[name]
		if ok && b.Provider.IsValid() && !b.IsConfigured() {
			warnings = append(warnings, fmt.Sprintf("%s skipped: %s needs an API key", name, b.Provider))
			continue
		}
		order = append(order, name)
	}
	settings.Order = order
	return settings, warnings
}

// CreateBackend creates the adapter for one backend. A zero timeout uses
// the adapter default.
func CreateBackend(settings domain.BackendSettings, timeout time.Duration) (driven.ExtractionBackend, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollama.NewBackend(ollama.Config{
			Name:    settings.Name,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openai.NewBackend(openai.Config{
			Name:    settings.Name,
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropic.NewBackend(anthropic.Config{
			Name:    settings.Name,
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

func ping(ctx context.Context, backend driven.ExtractionBackend) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return backend.Ping(ctx)
}
