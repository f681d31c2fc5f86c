package driven

import "context"

// TextExtractor reads the text content of a document file.
type TextExtractor interface {
	// Supports reports whether the extractor handles files with this extension.
	Supports(ext string) bool

	// ExtractText returns the UTF-8 text of the file at path.
	ExtractText(ctx context.Context, path string) (string, error)
}
