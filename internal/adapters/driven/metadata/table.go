// Package metadata loads the site metadata table from CSV or Excel files.
package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Column names, matched case-insensitively.
const (
	colID        = "id"
	colNummer    = "nummer"
	colNaam      = "naam"
	colGemeente  = "gemeente"
	colPostcode  = "postcode"
	colSourceURL = "source_url"
)

var requiredColumns = []string{colID, colSourceURL}

// NewSource returns the loader for path, chosen by file extension.
func NewSource(path string) (driven.SiteMetadataSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path), nil
	case ".xlsx":
		return NewXLSXSource(path, ""), nil
	default:
		return nil, fmt.Errorf("%w: metadata file %s (want .csv or .xlsx)", domain.ErrUnsupportedType, filepath.Base(path))
	}
}

// parseRecords converts a header row and data rows into site metadata.
// Blank rows are skipped. Rows without id or source_url are skipped with
// a warning, since no document identity can be derived for them.
func parseRecords(_ context.Context, name string, records [][]string) ([]domain.SiteMetadata, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, name)
	}

	columns := make(map[string]int)
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("%w: %s has no %q column", domain.ErrInvalidInput, name, c)
		}
	}

	cell := func(record []string, col string) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	sites := make([]domain.SiteMetadata, 0, len(records)-1)
	for n, record := range records[1:] {
		if blank(record) {
			continue
		}
		site := domain.SiteMetadata{
			ID:        cell(record, colID),
			Nummer:    cell(record, colNummer),
			Naam:      cell(record, colNaam),
			Gemeente:  cell(record, colGemeente),
			Postcode:  cell(record, colPostcode),
			SourceURL: cell(record, colSourceURL),
		}
		if err := site.Validate(); err != nil {
			logger.Warn("%s row %d: %v", name, n+2, err)
			continue
		}
		sites = append(sites, site)
	}
	logger.Debug("loaded %d sites from %s", len(sites), name)
	return sites, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
