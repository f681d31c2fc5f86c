// Package textsource reads the text of permit documents for ingest.
package textsource

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure PlainText implements the interface.
var _ driven.TextExtractor = (*PlainText)(nil)

// PlainText reads .txt files produced by an external text-extraction step.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Supports reports whether ext is ".txt".
func (PlainText) Supports(ext string) bool {
	return strings.EqualFold(ext, ".txt")
}

// ExtractText returns the file content. A UTF-8 byte order mark is dropped
// and invalid UTF-8 is rejected.
func (PlainText) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("read text: %s is not valid UTF-8", path)
	}
	return text, nil
}
