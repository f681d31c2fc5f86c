package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

func TestExportCmd_CSV(t *testing.T) {
	ts := setupServices(t)
	ts.pipeline.rows = testRows()
	path := filepath.Join(t.TempDir(), "assets.csv")

	out, err := execute(t, "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 rows to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(domain.FlatRowColumns, ","), strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Glassworks")
}

func TestExportCmd_XLSX(t *testing.T) {
	ts := setupServices(t)
	ts.pipeline.rows = testRows()
	path := filepath.Join(t.TempDir(), "assets.xlsx")

	_, err := execute(t, "export", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportCmd_UnsupportedFormat(t *testing.T) {
	setupServices(t)
	path := filepath.Join(t.TempDir(), "assets.json")

	_, err := execute(t, "export", path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.NoFileExists(t, path)
}

func TestExportCmd_RowsError(t *testing.T) {
	ts := setupServices(t)
	ts.pipeline.err = domain.ErrNotFound

	_, err := execute(t, "export", filepath.Join(t.TempDir(), "assets.csv"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
