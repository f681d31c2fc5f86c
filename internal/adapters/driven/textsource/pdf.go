package textsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Ensure PDF implements the interface.
var _ driven.TextExtractor = (*PDF)(nil)

// PDF reads the embedded text layer of PDF files. Scanned documents without
// a text layer yield empty text; OCR is out of scope.
type PDF struct{}

// NewPDF creates a PDF text extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Supports reports whether ext is ".pdf".
func (PDF) Supports(ext string) bool {
	return strings.EqualFold(ext, ".pdf")
}

// ExtractText returns the text of every page, one page per block.
// Pages that fail to decode are skipped.
func (PDF) ExtractText(ctx context.Context, path string) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("%s page %d: %v", path, i, err)
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
