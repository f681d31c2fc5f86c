package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure CSVExporter implements the interface.
var _ driven.RowExporter = (*CSVExporter)(nil)

// CSVExporter writes rows as comma separated text with a header line.
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Format returns "csv".
func (e *CSVExporter) Format() string {
	return "csv"
}

// Export writes the header and one line per row.
func (e *CSVExporter) Export(ctx context.Context, w io.Writer, rows []domain.FlatRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.FlatRowColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if i%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := cw.Write(row.Strings()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
