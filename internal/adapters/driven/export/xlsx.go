package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// SheetName is the worksheet holding the asset table.
const SheetName = "Assets"

// Column widths in FlatRowColumns order.
var columnWidths = []float64{10, 14, 36, 20, 10, 32, 16, 14, 14}

// Ensure XLSXExporter implements the interface.
var _ driven.RowExporter = (*XLSXExporter)(nil)

// XLSXExporter writes rows to an Excel workbook. Numeric capacities and
// counts are written as numbers, everything else as text.
type XLSXExporter struct{}

// NewXLSXExporter creates an Excel exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Format returns "xlsx".
func (e *XLSXExporter) Format() string {
	return "xlsx"
}

// Export writes a single-sheet workbook with a bold, frozen header row.
func (e *XLSXExporter) Export(ctx context.Context, w io.Writer, rows []domain.FlatRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	for i, width := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	header := make([]any, len(domain.FlatRowColumns))
	for i, name := range domain.FlatRowColumns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		if i%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
