package services

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
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService imports document text files as raw_text artifacts.
// Files must be named <document-id>.<ext>.
type IngestService struct {
	store      driven.ArtifactStore
	extractors []driven.TextExtractor
}

// NewIngestService creates an ingest service. Extractors are tried in order.
func NewIngestService(store driven.ArtifactStore, extractors ...driven.TextExtractor) *IngestService {
	return &IngestService{
		store:      store,
		extractors: extractors,
	}
}

// IngestFiles imports each file. Existing raw_text artifacts are never replaced.
func (s *IngestService) IngestFiles(ctx context.Context, paths []string) driving.IngestSummary {
	log := logger.For("ingest")
	var summary driving.IngestSummary

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		imported, err := s.ingestOne(ctx, path)
		switch {
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", filepath.Base(path), err))
			log.Warn("%s: %v", path, err)
		case imported:
			summary.Imported++
		default:
			summary.Skipped++
		}
	}
	log.Info("imported=%d skipped=%d failed=%d", summary.Imported, summary.Skipped, summary.Failed)
	return summary
}

// IngestDir imports every supported file directly inside dir, in name order.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (driving.IngestSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return driving.IngestSummary{}, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if s.extractorFor(filepath.Ext(e.Name())) == nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return s.IngestFiles(ctx, paths), nil
}

// Supports reports whether a file can be ingested.
func (s *IngestService) Supports(path string) bool {
	return s.extractorFor(filepath.Ext(path)) != nil
}

func (s *IngestService) ingestOne(ctx context.Context, path string) (bool, error) {
	ext := filepath.Ext(path)
	id, err := domain.ParseDocumentID(strings.TrimSuffix(filepath.Base(path), ext))
	if err != nil {
		return false, err
	}

	extractor := s.extractorFor(ext)
	if extractor == nil {
		return false, fmt.Errorf("%w: %s files", domain.ErrUnsupportedType, ext)
	}

	exists, err := s.store.Exists(ctx, id, domain.StageRawText)
	if err != nil {
		return false, fmt.Errorf("check raw text: %w", err)
	}
	if exists {
		logger.Debug("%s: raw text exists, skipping", id)
		return false, nil
	}

	text, err := extractor.ExtractText(ctx, path)
	if err != nil {
		return false, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("%s: no text extracted from %s", id, filepath.Base(path))
	}

	if err := s.store.Write(ctx, id, domain.StageRawText, []byte(text)); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	logger.Debug("%s: imported %d bytes from %s", id, len(text), filepath.Base(path))
	return true, nil
}

func (s *IngestService) extractorFor(ext string) driven.TextExtractor {
	ext = strings.ToLower(ext)
	for _, e := range s.extractors {
		if e.Supports(ext) {
			return e
		}
	}
	return nil
}
