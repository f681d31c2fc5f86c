package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// RowExporter writes the final output table.
type RowExporter interface {
	// Format names the output format (e.g. "xlsx", "csv").
	Format() string

	// Export writes rows in order, with a header of domain.FlatRowColumns.
	Export(ctx context.Context, w io.Writer, rows []domain.FlatRow) error
}
