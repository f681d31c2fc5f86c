package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
	"github.com/custodia-labs/permit-assets/internal/core/services"
)

// mockPipeline implements driving.PipelineService for testing.
type mockPipeline struct {
	report  *domain.PipelineReport
	status  *domain.StatusReport
	rows    []domain.FlatRow
	excerpt *domain.Excerpt
	err     error

	steps []driving.Step
	opts  driving.RunOptions
}

func (m *mockPipeline) Run(_ context.Context, opts driving.RunOptions) (*domain.PipelineReport, error) {
	m.steps = append(m.steps, driving.Steps()...)
	m.opts = opts
	return m.report, m.err
}

func (m *mockPipeline) RunStep(_ context.Context, step driving.Step, opts driving.RunOptions) (*domain.PipelineReport, error) {
	m.steps = append(m.steps, step)
	m.opts = opts
	return m.report, m.err
}

func (m *mockPipeline) Status(_ context.Context) (*domain.StatusReport, error) {
	return m.status, m.err
}

func (m *mockPipeline) Rows(_ context.Context) ([]domain.FlatRow, error) {
	return m.rows, m.err
}

func (m *mockPipeline) Excerpt(_ context.Context, _ domain.DocumentID) (*domain.Excerpt, error) {
	return m.excerpt, m.err
}

// mockIngest implements driving.IngestService for testing.
type mockIngest struct {
	summary driving.IngestSummary
	dirs    []string
}

func (m *mockIngest) IngestFiles(_ context.Context, _ []string) driving.IngestSummary {
	return m.summary
}

func (m *mockIngest) IngestDir(_ context.Context, dir string) (driving.IngestSummary, error) {
	m.dirs = append(m.dirs, dir)
	return m.summary, nil
}

// testServices holds the services handed to commands and the options they asked for.
type testServices struct {
	pipeline *mockPipeline
	ingest   *mockIngest
	config   *memory.ConfigStore
	opts     []FactoryOptions
	closed   int
}

// setupServices installs a factory returning mocks and resets command flags.
func setupServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		pipeline: &mockPipeline{report: &domain.PipelineReport{}, status: &domain.StatusReport{}},
		ingest:   &mockIngest{},
		config:   memory.NewConfigStore(),
	}
	settings := services.NewSettingsService(ts.config)

	oldFactory := serviceFactory
	serviceFactory = func(_ context.Context, opts FactoryOptions) (*Services, error) {
		ts.opts = append(ts.opts, opts)
		return &Services{
			Pipeline: ts.pipeline,
			Ingest:   ts.ingest,
			Settings: settings,
			Close:    func() { ts.closed++ },
		}, nil
	}

	oldTerminal := isTerminal
	isTerminal = func(_ io.Writer) bool { return false }

	t.Cleanup(func() {
		serviceFactory = oldFactory
		isTerminal = oldTerminal
		runMetadata, runOutput, runProgress, runDocs = "", "", false, nil
		statusFailures = false
		excerptNumbered, excerptStats = false, false
		ingestWatch = false
		configForce = false
		configDir = ""
	})
	return ts
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
