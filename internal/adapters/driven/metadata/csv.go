package metadata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure CSVSource implements the interface.
var _ driven.SiteMetadataSource = (*CSVSource)(nil)

// CSVSource reads sites from a comma or semicolon separated file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSV loader for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load reads every site in file order.
func (s *CSVSource) Load(ctx context.Context) ([]domain.SiteMetadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, filepath.Base(s.path), err)
	}
	return parseRecords(ctx, filepath.Base(s.path), records)
}

// detectDelimiter picks ';' when the header line has more semicolons than
// commas. Spreadsheet exports in Belgian locales use semicolons.
func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte{';'}) > bytes.Count(header, []byte{','}) {
		return ';'
	}
	return ','
}
