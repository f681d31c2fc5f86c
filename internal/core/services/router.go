package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

const (
	// DefaultRetries is the number of attempts after the first.
	DefaultRetries = domain.DefaultRetries

	// DefaultBackendTimeout bounds a single backend call.
	DefaultBackendTimeout = domain.DefaultCallTimeout
)

// DefaultExtractionPrompt is used when no asset_extraction prompt is stored.
const DefaultExtractionPrompt = `You are a strict Industrial Energy Auditor.
Your task: Extract physical assets from the provided TEXT only.

RULES:
1. DO NOT use outside knowledge.
2. DO NOT provide URLs, links or image paths.
3. Return one entry per physical asset. Do not return entries for regulatory mentions such as emission limits, permit conditions or monitoring requirements.
4. If no asset_type is found, do not include the entry.
5. capacity_value, capacity_unit and count_of_units may be null when the TEXT does not state them.
6. If no assets are found, return {"assets": []}.
7. Return ONLY valid JSON in the form {"assets": [{"asset_type": "...", "capacity_value": ..., "capacity_unit": "...", "count_of_units": ...}]}.

TEXT:
%s`

// ExtractionStats describes how a document's extraction was obtained.
type ExtractionStats struct {
	// Attempts is the number of backend calls made.
	Attempts int

	// Backend names the backend that produced the accepted result.
	Backend string

	// Dropped counts entries discarded for lacking an asset type.
	Dropped int
}

// RouterConfig configures an ExtractionRouter.
type RouterConfig struct {
	Retries int
	Timeout time.Duration
}

// ExtractionRouter sends an excerpt to an ordered list of backends and
// returns the first output that passes validation.
//
// Attempt k uses backends[k mod n], for at most 1+Retries attempts. A
// transient failure or invalid output moves to the next attempt. A permanent
// failure ends routing for the document.
type ExtractionRouter struct {
	backends []driven.ExtractionBackend
	retries  int
	timeout  time.Duration
	prompts  driven.PromptStore
	parser   *ResultParser
}

// NewExtractionRouter creates a router over backends in priority order.
// Prompts may be nil, in which case DefaultExtractionPrompt is used.
func NewExtractionRouter(backends []driven.ExtractionBackend, cfg RouterConfig, prompts driven.PromptStore) (*ExtractionRouter, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: at least one extraction backend is required", domain.ErrBackendUnavailable)
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBackendTimeout
	}
	parser, err := NewResultParser()
	if err != nil {
		return nil, err
	}
	return &ExtractionRouter{
		backends: backends,
		retries:  cfg.Retries,
		timeout:  cfg.Timeout,
		prompts:  prompts,
		parser:   parser,
	}, nil
}

// Backends returns the backend names in routing order.
func (r *ExtractionRouter) Backends() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Extract returns the validated structured result for an excerpt.
// An empty excerpt yields an empty result without calling any backend.
func (r *ExtractionRouter) Extract(ctx context.Context, id domain.DocumentID, excerpt string) (*domain.StructuredResult, ExtractionStats, error) {
	log := logger.For("extract")
	var stats ExtractionStats

	if strings.TrimSpace(excerpt) == "" {
		log.Debug("%s: empty excerpt, no backend call", id)
		return &domain.StructuredResult{Source: id, Assets: []domain.AssetRecord{}}, stats, nil
	}

	prompt := r.buildPrompt(excerpt)
	maxAttempts := 1 + r.retries
	var attempts []error

	for k := 0; k < maxAttempts; k++ {
		backend := r.backends[k%len(r.backends)]
		stats.Attempts++

		raw, err := r.call(ctx, backend, prompt)
		if err != nil {
			attempts = append(attempts, err)
			if !domain.IsTransient(err) {
				log.Warn("%s: %s failed permanently: %v", id, backend.Name(), err)
				break
			}
			log.Warn("%s: %s failed, trying next backend: %v", id, backend.Name(), err)
			continue
		}

		result, dropped, err := r.parser.Parse(id, raw)
		if err != nil {
			attempts = append(attempts, fmt.Errorf("%s: invalid output: %w", backend.Name(), err))
			log.Warn("%s: %s returned invalid output: %v", id, backend.Name(), err)
			continue
		}

		stats.Backend = backend.Name()
		stats.Dropped = dropped
		if dropped > 0 {
			log.Info("%s: dropped %d entries without asset_type", id, dropped)
		}
		log.Debug("%s: %d assets from %s after %d attempts", id, len(result.Assets), backend.Name(), stats.Attempts)
		return result, stats, nil
	}

	return nil, stats, &domain.ExtractionFailedError{Document: id, Attempts: attempts}
}

// call runs one backend request under the per-call timeout.
func (r *ExtractionRouter) call(ctx context.Context, backend driven.ExtractionBackend, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := backend.Extract(callCtx, prompt)
	if err == nil {
		return raw, nil
	}

	var be *domain.BackendError
	if errors.As(err, &be) {
		return "", err
	}
	// Unclassified errors: our own deadline is transient, anything else is not.
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", domain.NewTransientError(backend.Name(), fmt.Errorf("timed out after %s: %w", r.timeout, err))
	}
	return "", domain.NewPermanentError(backend.Name(), err)
}

func (r *ExtractionRouter) buildPrompt(excerpt string) string {
	template := DefaultExtractionPrompt
	if r.prompts != nil {
		if p, err := r.prompts.Load(driven.PromptAssetExtraction); err == nil && strings.TrimSpace(p) != "" {
			template = p
		} else if err != nil {
			logger.Debug("prompt %s unavailable, using default: %v", driven.PromptAssetExtraction, err)
		}
	}
	if !strings.Contains(template, "%s") {
		return template + "\n\nTEXT:\n" + excerpt
	}
	return strings.Replace(template, "%s", excerpt, 1)
}
