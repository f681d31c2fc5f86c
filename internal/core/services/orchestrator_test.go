package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
)

// funcBackend answers prompts with a function and counts calls.
type funcBackend struct {
	name  string
	calls int32
	fn    func(prompt string) (string, error)
}

func (b *funcBackend) Name() string { return b.name }

func (b *funcBackend) Extract(_ context.Context, prompt string) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.fn(prompt)
}

func (b *funcBackend) Ping(context.Context) error { return nil }
func (b *funcBackend) Close() error               { return nil }

// tagTranslator appends a marker so tests can see it ran.
type tagTranslator struct{}

func (tagTranslator) Translate(_ context.Context, text string) (string, error) {
	return text + "\n(translated)", nil
}

var pipelineSites = []domain.SiteMetadata{
	{ID: "101", Nummer: "N-101", Naam: "Acme Chemicals", Gemeente: "Antwerpen", Postcode: "2000", SourceURL: "https://example.org/101.pdf"},
	{ID: "102", Nummer: "N-102", Naam: "Beta Steel", Gemeente: "Gent", Postcode: "9000", SourceURL: "https://example.org/102.pdf"},
	{ID: "103", Nummer: "N-103", Naam: "Gamma Paper", Gemeente: "Brugge", Postcode: "8000", SourceURL: "https://example.org/103.pdf"},
	{ID: "104", Nummer: "N-104", Naam: "Delta Foods", Gemeente: "Leuven", Postcode: "3000", SourceURL: "https://example.org/104.pdf"},
}

type pipelineFixture struct {
	store   *memory.ArtifactStore
	ledger  *memory.RunLedger
	backend *funcBackend
	p       *Pipeline
	ids     []domain.DocumentID
}

// newPipelineFixture builds a pipeline over four sites:
// 101 has generator text, 102 has no keywords, 103 has boiler text the
// backend refuses, 104 has no raw text.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewArtifactStore()
	ids := make([]domain.DocumentID, len(pipelineSites))
	for i, s := range pipelineSites {
		ids[i] = s.DocumentID()
	}
	require.NoError(t, store.Write(ctx, ids[0], domain.StageRawText,
		[]byte("Introduction\nEmergency generator 500 kW\nDiesel fuelled\nTwo units\nEmission limits apply")))
	require.NoError(t, store.Write(ctx, ids[1], domain.StageRawText,
		[]byte("General conditions\nNothing of interest")))
	require.NoError(t, store.Write(ctx, ids[2], domain.StageRawText,
		[]byte("Steam boiler 2 MW")))

	backend := &funcBackend{name: "primary", fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "generator"):
			return `{"assets":[
				{"asset_type":"emergency generator","capacity_value":500,"capacity_unit":"kW","count_of_units":2},
				{"capacity_value":1}
			]}`, nil
		case strings.Contains(prompt, "boiler"):
			return "", domain.NewPermanentError("primary", errors.New("400 bad request"))
		default:
			return `{"assets":[]}`, nil
		}
	}}

	router, err := NewExtractionRouter([]driven.ExtractionBackend{backend}, RouterConfig{Retries: 1, Timeout: time.Second}, nil)
	require.NoError(t, err)
	reducer := NewRelevanceReducer(domain.ReducerSettings{
		Include: []string{"generator", "boiler"},
		Exclude: []string{"emission"},
		Window:  3,
	})

	ledger := memory.NewRunLedger()
	p := NewPipeline(store, memory.NewSiteTable(pipelineSites...), tagTranslator{}, reducer, router, 2)
	p.SetLedger(ledger)

	return &pipelineFixture{store: store, ledger: ledger, backend: backend, p: p, ids: ids}
}

// TestPipeline_Run tests a full run over mixed documents
func TestPipeline_Run(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	report, err := f.p.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	require.Len(t, report.Stages, 3)
	translate, extract, flatten := report.Stages[0], report.Stages[1], report.Stages[2]
	assert.Equal(t, 3, translate.Processed)
	assert.Equal(t, 2, extract.Processed)
	assert.Equal(t, 1, extract.Failed)
	assert.Equal(t, 2, flatten.Processed)
	assert.Equal(t, 0, flatten.Failed)

	assert.Equal(t, 1, report.AwaitingText)
	assert.Equal(t, 1, report.DroppedAssets)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.Cancelled)
	assert.Equal(t, 2, report.States[domain.StateFlattened])
	assert.Equal(t, 1, report.States[domain.StateFailed])
	assert.Equal(t, 1, report.States[domain.StatePending])

	// 102 had no seeds, so the backend never saw it.
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.backend.calls))

	rows, err := f.p.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "101", rows[0].ID)
	assert.Equal(t, "emergency generator", rows[0].AssetType)
	assert.Equal(t, "500", rows[0].CapacityValue.String())

	translated, err := f.store.Read(ctx, f.ids[0], domain.StageTranslatedText)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(translated), "(translated)"))

	empty, err := f.store.Read(ctx, f.ids[1], domain.StageStructuredResult)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"`+string(f.ids[1])+`","assets":[]}`, string(empty))
}

// TestPipeline_RunIsIdempotent tests that a second run redoes only failed work
func TestPipeline_RunIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.p.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt32(&f.backend.calls)

	report, err := f.p.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stages[0].Processed)
	assert.Equal(t, 3, report.Stages[0].Skipped)
	assert.Equal(t, 0, report.Stages[1].Processed)
	assert.Equal(t, 2, report.Stages[1].Skipped)
	assert.Equal(t, 1, report.Stages[1].Failed)
	assert.Equal(t, 2, report.Stages[2].Skipped)
	assert.Equal(t, 1, report.Rows)
	// Only the failed document is retried.
	assert.Equal(t, callsAfterFirst+1, atomic.LoadInt32(&f.backend.calls))
}

// TestPipeline_Status tests that status is derived from artifacts and the last run
func TestPipeline_Status(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.p.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	status, err := f.p.Status(ctx)
	require.NoError(t, err)

	require.Len(t, status.Documents, 4)
	assert.Equal(t, domain.StateFlattened, status.Documents[0].State)
	assert.Equal(t, domain.StageFlattenedRows, status.Documents[0].Latest)
	assert.Equal(t, domain.StateTextReady, status.Documents[2].State)
	assert.Contains(t, status.Documents[2].LastError, "400 bad request")
	assert.Equal(t, domain.StatePending, status.Documents[3].State)
	assert.Equal(t, "Delta Foods", status.Documents[3].Site.Naam)
	assert.Equal(t, 2, status.Counts[domain.StateFlattened])
	require.NotNil(t, status.LastRun)
	assert.Len(t, status.LastRun.Stages, 3)
}

// TestPipeline_MissingMetadata tests that a result without a site row is skipped at flatten
func TestPipeline_MissingMetadata(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	orphan := domain.NewDocumentID("999", "https://example.org/999.pdf")
	require.NoError(t, f.store.Write(ctx, orphan, domain.StageStructuredResult,
		[]byte(`{"source":"`+string(orphan)+`","assets":[{"asset_type":"chiller"}]}`)))

	report, err := f.p.RunStep(ctx, driving.StepFlatten, driving.RunOptions{Documents: []domain.DocumentID{orphan}})
	require.NoError(t, err)

	require.Len(t, report.Stages, 1)
	assert.Equal(t, 1, report.Stages[0].Failed)
	assert.Equal(t, []domain.DocumentID{orphan}, report.MissingMetadata)
	assert.True(t, errors.Is(report.Stages[0].Failures[0].Err, domain.ErrMissingMetadata))
	var missing *domain.MissingMetadataError
	require.True(t, errors.As(report.Stages[0].Failures[0].Err, &missing))
	assert.Equal(t, orphan, missing.Document)

	status, err := f.p.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status.Documents, 5)
	assert.Equal(t, orphan, status.Documents[4].Document)
}

// TestPipeline_RunStepMissingInput tests that a step without its input fails per document
func TestPipeline_RunStepMissingInput(t *testing.T) {
	f := newPipelineFixture(t)

	report, err := f.p.RunStep(context.Background(), driving.StepExtract, driving.RunOptions{})
	require.NoError(t, err)

	require.Len(t, report.Stages, 1)
	assert.Equal(t, 3, report.Stages[0].Failed)
	for _, failure := range report.Stages[0].Failures {
		assert.ErrorIs(t, failure.Err, domain.ErrMissingInput)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.backend.calls))
}

func TestPipeline_RunStepInvalid(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := f.p.RunStep(context.Background(), driving.Step("index"), driving.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestPipeline_Cancelled tests that a cancelled context runs no stage
func TestPipeline_Cancelled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.p.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Stages)
}

func TestPipeline_Excerpt(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	excerpt, err := f.p.Excerpt(ctx, f.ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Emergency generator 500 kW\nDiesel fuelled\nTwo units", excerpt.Text())

	_, err = f.p.Excerpt(ctx, f.ids[3])
	assert.ErrorIs(t, err, domain.ErrMissingInput)
}

func TestPipeline_NoRouter(t *testing.T) {
	store := memory.NewArtifactStore()
	id := pipelineSites[0].DocumentID()
	require.NoError(t, store.Write(context.Background(), id, domain.StageTranslatedText, []byte("generator")))

	p := NewPipeline(store, memory.NewSiteTable(pipelineSites[0]), nil, NewRelevanceReducer(domain.ReducerSettings{Include: []string{"generator"}}), nil, 1)
	report, err := p.RunStep(context.Background(), driving.StepExtract, driving.RunOptions{})
	require.NoError(t, err)
	require.Len(t, report.Stages[0].Failures, 1)
	assert.ErrorIs(t, report.Stages[0].Failures[0].Err, domain.ErrBackendUnavailable)
}

func TestPipeline_NoMetadataSource(t *testing.T) {
	p := NewPipeline(memory.NewArtifactStore(), nil, nil, nil, nil, 1)
	_, err := p.Run(context.Background(), driving.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
