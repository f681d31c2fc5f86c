package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// FlattenOutcome is the result of flattening a set of documents.
type FlattenOutcome struct {
	// Rows holds one row per asset, in input order.
	Rows []domain.FlatRow

	// Missing holds one error per document with no site metadata.
	Missing []*domain.MissingMetadataError
}

// Flattener joins structured results with site metadata.
type Flattener struct{}

// NewFlattener creates a flattener.
func NewFlattener() *Flattener {
	return &Flattener{}
}

// FlattenOne returns the rows for a single result. A result with N assets
// yields exactly N rows; zero assets yields none. Missing metadata returns
// a MissingMetadataError.
func (f *Flattener) FlattenOne(result *domain.StructuredResult, sites *domain.SiteIndex) ([]domain.FlatRow, error) {
	site, ok := sites.Lookup(result.Source)
	if !ok {
		return nil, &domain.MissingMetadataError{Document: result.Source}
	}
	rows := make([]domain.FlatRow, 0, len(result.Assets))
	for _, a := range result.Assets {
		rows = append(rows, domain.NewFlatRow(result.Source, site, a))
	}
	return rows, nil
}

// Flatten joins every result with its site, keeping input order. Results
// without metadata are skipped and listed in Missing.
func (f *Flattener) Flatten(results []*domain.StructuredResult, sites *domain.SiteIndex) FlattenOutcome {
	out := FlattenOutcome{Rows: []domain.FlatRow{}}
	for _, r := range results {
		rows, err := f.FlattenOne(r, sites)
		var missing *domain.MissingMetadataError
		if errors.As(err, &missing) {
			out.Missing = append(out.Missing, missing)
			continue
		}
		out.Rows = append(out.Rows, rows...)
	}
	return out
}

// EncodeRows serialises a flattened_rows artifact.
func EncodeRows(rows []domain.FlatRow) ([]byte, error) {
	if rows == nil {
		rows = []domain.FlatRow{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return b, nil
}

// DecodeRows parses a flattened_rows artifact.
func DecodeRows(data []byte) ([]domain.FlatRow, error) {
	var rows []domain.FlatRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if rows == nil {
		rows = []domain.FlatRow{}
	}
	return rows, nil
}
