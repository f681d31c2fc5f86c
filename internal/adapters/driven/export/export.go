// Package export writes the final asset table.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// ForPath returns the exporter matching the file extension of path.
func ForPath(path string) (driven.RowExporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return NewXLSXExporter(), nil
	case ".csv":
		return NewCSVExporter(), nil
	default:
		return nil, fmt.Errorf("%w: export format %q (want .xlsx or .csv)", domain.ErrUnsupportedType, filepath.Ext(path))
	}
}
