package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/config/file"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/permit-assets/internal/adapters/driving/cli"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
)

const sitesCSV = "id,nummer,naam,gemeente,postcode,source_url\n" +
	"site-1,42,Glassworks,Gent,9000,https://example.org/permit.pdf\n"

func writeConfig(t *testing.T, dir string, values map[string]any) {
	t.Helper()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
}

func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"response": `{"assets":[{"asset_type":"generator","capacity_value":500,"capacity_unit":"kW","count_of_units":1}]}`,
				"done":     true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestBuildServices_EndToEnd tests ingest, a full run and status through real adapters
func TestBuildServices_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := ollamaServer(t)

	configDir := t.TempDir()
	writeConfig(t, configDir, map[string]any{
		"extraction.order":          []string{"primary"},
		"backends.primary.base_url": srv.URL,
	})

	work := t.TempDir()
	sites := filepath.Join(work, "sites.csv")
	require.NoError(t, os.WriteFile(sites, []byte(sitesCSV), 0o600))

	id := domain.NewDocumentID("site-1", "https://example.org/permit.pdf")
	textDir := filepath.Join(work, "text")
	require.NoError(t, os.Mkdir(textDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(textDir, string(id)+".txt"),
		[]byte("Introduction\nGenerator 500 kW\nclosing remarks"), 0o600))

	svc, err := buildServices(ctx, cli.FactoryOptions{ConfigDir: configDir, Metadata: sites, NeedBackends: true})
	require.NoError(t, err)
	defer svc.Close()
	assert.Empty(t, svc.Warnings)

	summary, err := svc.Ingest.IngestDir(ctx, textDir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	report, err := svc.Pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Failed())
	assert.Equal(t, 1, report.Rows)

	rows, err := svc.Pipeline.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Glassworks", rows[0].Naam)
	assert.Equal(t, "generator", rows[0].AssetType)

	status, err := svc.Pipeline.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[domain.StateFlattened])
	require.NotNil(t, status.LastRun)
	assert.Len(t, status.LastRun.Stages, 3)

	assert.FileExists(t, filepath.Join(configDir, "prompts", "asset_extraction.txt"))
	assert.FileExists(t, filepath.Join(configDir, "data", sqlite.DatabaseFile))
	assert.DirExists(t, filepath.Join(configDir, "data", "artifacts"))
}

func TestBuildServices_SQLiteStore(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, map[string]any{"pipeline.store": "sqlite"})

	svc, err := buildServices(context.Background(), cli.FactoryOptions{ConfigDir: configDir})
	require.NoError(t, err)
	defer svc.Close()
	assert.NoDirExists(t, filepath.Join(configDir, "data", "artifacts"))
}

func TestBuildServices_InvalidSettings(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, map[string]any{"pipeline.workers": 0})

	_, err := buildServices(context.Background(), cli.FactoryOptions{ConfigDir: configDir})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildServices_NoMetadata(t *testing.T) {
	svc, err := buildServices(context.Background(), cli.FactoryOptions{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Pipeline.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "--metadata")
}

func TestBuildServices_UnsupportedMetadata(t *testing.T) {
	_, err := buildServices(context.Background(), cli.FactoryOptions{ConfigDir: t.TempDir(), Metadata: "sites.json"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestBuildServices_NoReachableBackend(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, map[string]any{
		"extraction.order":          []string{"primary"},
		"backends.primary.base_url": "http://127.0.0.1:1",
	})

	_, err := buildServices(context.Background(), cli.FactoryOptions{ConfigDir: configDir, NeedBackends: true})
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestResolveConfigDir(t *testing.T) {
	dir, err := resolveConfigDir("/etc/permit-assets")
	require.NoError(t, err)
	assert.Equal(t, "/etc/permit-assets", dir)

	dir, err = resolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, file.DefaultDirName, filepath.Base(dir))
}

func TestArtifactStore_UnknownKind(t *testing.T) {
	_, err := artifactStore("s3", nil, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
