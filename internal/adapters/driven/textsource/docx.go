package textsource

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure DOCX implements the interface.
var _ driven.TextExtractor = (*DOCX)(nil)

const docxBody = "word/document.xml"

// DOCX reads Word documents.
type DOCX struct{}

// NewDOCX creates a DOCX text extractor.
func NewDOCX() *DOCX {
	return &DOCX{}
}

// Supports reports whether ext is ".docx".
func (DOCX) Supports(ext string) bool {
	return strings.EqualFold(ext, ".docx")
}

// ExtractText returns one line per paragraph. Paragraphs inside a table
// row are joined with " | ".
func (DOCX) ExtractText(_ context.Context, path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", domain.ErrInvalidInput, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBody, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return "", fmt.Errorf("%w: %s missing from docx", domain.ErrInvalidInput, docxBody)
}

// parseDocumentXML walks the WordprocessingML body. Element names are
// matched on their local part so the w: prefix does not matter.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		para   strings.Builder
		row    []string
		inText bool
		depth  int // table row nesting
	)
	flush := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if depth > 0 {
			if text != "" {
				row = append(row, text)
			}
			return
		}
		if text != "" {
			lines = append(lines, text)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse docx: %v", domain.ErrInvalidInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte(' ')
			case "tr":
				depth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			case "tr":
				depth--
				if depth == 0 && len(row) > 0 {
					lines = append(lines, strings.Join(row, " | "))
					row = row[:0]
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
