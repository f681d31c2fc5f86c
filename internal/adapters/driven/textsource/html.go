package textsource

import (
	"context"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure HTML implements the interface.
var _ driven.TextExtractor = (*HTML)(nil)

// HTML reads permit pages saved as .html or .htm files.
type HTML struct{}

// NewHTML creates an HTML text extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// Supports reports whether ext is ".html" or ".htm".
func (HTML) Supports(ext string) bool {
	return strings.EqualFold(ext, ".html") || strings.EqualFold(ext, ".htm")
}

// ExtractText strips markup and returns one line per block element.
func (HTML) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return StripHTML(string(data)), nil
}

var (
	invisibleTags = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(script|style|noscript|head|svg)>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTags     = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>|<(br|hr)\s*/?>`)
	cellTags      = regexp.MustCompile(`(?i)</t[dh]>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	runsOfSpace   = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// StripHTML converts markup to text. Table cells on one row are joined
// with " | " so capacity columns stay on the line of their equipment.
func StripHTML(content string) string {
	content = invisibleTags.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = cellTags.ReplaceAllString(content, " | ")
	content = blockTags.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = runsOfSpace.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Trim(strings.TrimSpace(line), "| ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
