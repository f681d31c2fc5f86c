package textsource

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

func TestPlainText_ExtractText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffGenerator 500 kW\nModel X200\n"), 0o600))

	text, err := NewPlainText().ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Generator 500 kW\nModel X200\n", text)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 0x00}, 0o600))
	_, err = NewPlainText().ExtractText(context.Background(), bad)
	assert.Error(t, err)

	_, err = NewPlainText().ExtractText(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSupports(t *testing.T) {
	assert.True(t, NewPlainText().Supports(".TXT"))
	assert.False(t, NewPlainText().Supports(".pdf"))
	assert.True(t, NewPDF().Supports(".pdf"))
	assert.True(t, NewPDF().Supports(".PDF"))
	assert.False(t, NewPDF().Supports(".txt"))
	assert.True(t, NewHTML().Supports(".htm"))
	assert.True(t, NewHTML().Supports(".HTML"))
	assert.True(t, NewDOCX().Supports(".docx"))
	assert.False(t, NewDOCX().Supports(".doc"))
}

func TestPDF_ExtractText_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	_, err := NewPDF().ExtractText(context.Background(), path)
	assert.Error(t, err)

	_, err = NewPDF().ExtractText(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	page := `<html><head><title>Permit</title><style>p{}</style></head><body>
<!-- navigation -->
<h1>Installations</h1>
<script>track()</script>
<p>Emergency&nbsp;generator   of 500 kW</p>
<table><tr><th>Equipment</th><th>Capacity</th></tr>
<tr><td>Boiler</td><td>2 MW</td></tr></table>
line one<br/>line two
</body></html>`

	assert.Equal(t, "Installations\n"+
		"Emergency generator of 500 kW\n"+
		"Equipment | Capacity\n"+
		"Boiler | 2 MW\n"+
		"line one\n"+
		"line two", StripHTML(page))
}

func TestHTML_ExtractText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permit.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>Transformer &amp; switchgear</p>"), 0o600))

	text, err := NewHTML().ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Transformer & switchgear", text)
}

// writeDOCX builds a minimal Word document with the given body XML.
func writeDOCX(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permit.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDOCX_ExtractText(t *testing.T) {
	path := writeDOCX(t,
		`<w:p><w:r><w:t>Diesel generator</w:t></w:r><w:r><w:t xml:space="preserve"> 800 kVA</w:t></w:r></w:p>`+
			`<w:p></w:p>`+
			`<w:tbl><w:tr>`+
			`<w:tc><w:p><w:r><w:t>Chiller</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>350 kW</w:t></w:r></w:p></w:tc>`+
			`</w:tr></w:tbl>`+
			`<w:p><w:r><w:t>Fuel</w:t><w:tab/><w:t>diesel</w:t></w:r></w:p>`)

	text, err := NewDOCX().ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Diesel generator 800 kVA\nChiller | 350 kW\nFuel\tdiesel", text)
}

func TestDOCX_ExtractText_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := NewDOCX().ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDOCX_ExtractText_MissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("docProps/core.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = NewDOCX().ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
