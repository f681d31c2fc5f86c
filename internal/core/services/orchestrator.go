package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// Pipeline sequences the stages over the document set.
//
// Stages run one after another; within a stage documents run concurrently
// through the StageRunner. Nothing but artifacts survives between runs.
type Pipeline struct {
	store      driven.ArtifactStore
	metadata   driven.SiteMetadataSource
	translator driven.Translator
	reducer    *RelevanceReducer
	router     *ExtractionRouter
	flattener  *Flattener
	workers    int

	ledger   driven.RunLedger
	progress driven.ProgressReporter
}

// NewPipeline creates a pipeline.
// The translator may be nil, in which case raw text passes through unchanged.
// The router may be nil when only translate and flatten are run; extract then
// fails every document with domain.ErrBackendUnavailable.
func NewPipeline(
	store driven.ArtifactStore,
	metadata driven.SiteMetadataSource,
	translator driven.Translator,
	reducer *RelevanceReducer,
	router *ExtractionRouter,
	workers int,
) *Pipeline {
	if translator == nil {
		translator = passthroughTranslator{}
	}
	return &Pipeline{
		store:      store,
		metadata:   metadata,
		translator: translator,
		reducer:    reducer,
		router:     router,
		flattener:  NewFlattener(),
		workers:    workers,
		progress:   driven.NopProgress{},
	}
}

// SetLedger sets the run ledger. A nil ledger disables run history.
func (p *Pipeline) SetLedger(ledger driven.RunLedger) {
	p.ledger = ledger
}

// SetProgress sets the progress reporter.
func (p *Pipeline) SetProgress(progress driven.ProgressReporter) {
	if progress == nil {
		progress = driven.NopProgress{}
	}
	p.progress = progress
}

// Run executes translate, extract and flatten in order.
func (p *Pipeline) Run(ctx context.Context, opts driving.RunOptions) (*domain.PipelineReport, error) {
	return p.run(ctx, driving.Steps(), opts)
}

// RunStep executes a single step.
func (p *Pipeline) RunStep(ctx context.Context, step driving.Step, opts driving.RunOptions) (*domain.PipelineReport, error) {
	if !step.IsValid() {
		return nil, fmt.Errorf("%w: step %q", domain.ErrInvalidInput, step)
	}
	return p.run(ctx, []driving.Step{step}, opts)
}

func (p *Pipeline) run(ctx context.Context, steps []driving.Step, opts driving.RunOptions) (*domain.PipelineReport, error) {
	sites, dups, err := p.loadSites(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range dups {
		logger.Warn("site %s resolves to an existing document %s, ignoring duplicate", d.ID, d.DocumentID())
	}

	docs, err := selectDocuments(sites, opts.Documents)
	if err != nil {
		return nil, err
	}

	rc := NewRunContext()
	report := &domain.PipelineReport{
		RunID:          rc.ID,
		StartedAt:      rc.StartedAt,
		DuplicateSites: len(dups),
	}
	logger.Section(fmt.Sprintf("Run %s", rc.ID))
	logger.Info("%d documents, steps %v", len(docs), steps)

	p.startRun(ctx, rc)

	if err := p.initStates(ctx, rc, docs); err != nil {
		return nil, err
	}
	report.AwaitingText = len(rc.Filter(docs, func(s domain.DocumentState) bool {
		return s == domain.StatePending
	}))
	if report.AwaitingText > 0 {
		logger.Info("%d documents awaiting text", report.AwaitingText)
	}

	runner := NewStageRunner(p.store, p.workers, p.progress)
	for _, step := range steps {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		batch := rc.Filter(docs, func(s domain.DocumentState) bool {
			return s != domain.StatePending && s != domain.StateFailed
		})
		summary := runner.Run(ctx, rc, batch, p.stageStep(step, sites, rc))
		report.Stages = append(report.Stages, summary)
		p.recordStage(ctx, rc.ID, summary)

		for _, f := range summary.Failures {
			if errors.Is(f.Err, domain.ErrMissingMetadata) {
				report.MissingMetadata = append(report.MissingMetadata, f.Document)
			}
		}
		if summary.Cancelled {
			report.Cancelled = true
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	report.States = rc.Counts()
	report.DroppedAssets = rc.Dropped()

	rows, err := p.rowsFor(ctx, docs)
	if err != nil {
		logger.Warn("count rows: %v", err)
	}
	report.Rows = len(rows)

	p.finishRun(ctx, rc, report)
	logger.Info("run %s finished: %d rows, %d failed", rc.ID, report.Rows, report.Failed())
	return report, nil
}

// stageStep builds the runner step for a pipeline step.
func (p *Pipeline) stageStep(step driving.Step, sites *domain.SiteIndex, rc *RunContext) StageStep {
	switch step {
	case driving.StepTranslate:
		return StageStep{
			Name:    string(step),
			Input:   domain.StageRawText,
			Output:  domain.StageTranslatedText,
			Compute: p.translate,
		}
	case driving.StepExtract:
		return StageStep{
			Name:   string(step),
			Input:  domain.StageTranslatedText,
			Output: domain.StageStructuredResult,
			Compute: func(ctx context.Context, id domain.DocumentID, input []byte) ([]byte, error) {
				return p.extract(ctx, rc, id, input)
			},
		}
	default:
		return StageStep{
			Name:   string(step),
			Input:  domain.StageStructuredResult,
			Output: domain.StageFlattenedRows,
			Compute: func(_ context.Context, id domain.DocumentID, input []byte) ([]byte, error) {
				return p.flatten(id, input, sites)
			},
		}
	}
}

func (p *Pipeline) translate(ctx context.Context, _ domain.DocumentID, input []byte) ([]byte, error) {
	text, err := p.translator.Translate(ctx, string(input))
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return []byte(text), nil
}

func (p *Pipeline) extract(ctx context.Context, rc *RunContext, id domain.DocumentID, input []byte) ([]byte, error) {
	if p.router == nil {
		return nil, fmt.Errorf("%w: no extraction backend configured", domain.ErrBackendUnavailable)
	}
	excerpt := p.reducer.Reduce(id, string(input))
	result, stats, err := p.router.Extract(ctx, id, excerpt.Text())
	if err != nil {
		return nil, err
	}
	rc.AddDropped(stats.Dropped)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode structured result: %w", err)
	}
	return data, nil
}

func (p *Pipeline) flatten(id domain.DocumentID, input []byte, sites *domain.SiteIndex) ([]byte, error) {
	result, err := domain.ParseStructuredResult(input)
	if err != nil {
		return nil, err
	}
	if result.Source != id {
		return nil, fmt.Errorf("%w: structured result source %s does not match %s", domain.ErrInvalidInput, result.Source, id)
	}
	out := p.flattener.Flatten([]*domain.StructuredResult{result}, sites)
	if len(out.Missing) > 0 {
		return nil, out.Missing[0]
	}
	return EncodeRows(out.Rows)
}

// Status derives every document's state from the artifact store.
func (p *Pipeline) Status(ctx context.Context) (*domain.StatusReport, error) {
	sites, _, err := p.loadSites(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.StatusReport{Counts: make(map[domain.DocumentState]int)}
	for _, s := range domain.AllStates() {
		report.Counts[s] = 0
	}

	lastErrors := make(map[domain.DocumentID]string)
	if p.ledger != nil {
		last, err := p.ledger.LastRun(ctx)
		switch {
		case err == nil:
			report.LastRun = last
			failures, err := p.ledger.Failures(ctx, last.ID)
			if err != nil {
				logger.Warn("load failures of run %s: %v", last.ID, err)
			}
			for _, f := range failures {
				lastErrors[f.Document] = f.Message
			}
		case !errors.Is(err, domain.ErrNotFound):
			logger.Warn("load last run: %v", err)
		}
	}

	docs := sites.Documents()
	known := make(map[domain.DocumentID]bool, len(docs))
	for _, id := range docs {
		known[id] = true
	}
	var orphans []domain.DocumentID
	for _, stage := range domain.PersistedStages() {
		stored, err := p.store.List(ctx, stage)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", stage, err)
		}
		for _, id := range stored {
			if !known[id] {
				known[id] = true
				orphans = append(orphans, id)
			}
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	docs = append(docs, orphans...)

	for _, id := range docs {
		latest, err := p.latestStage(ctx, id)
		if err != nil {
			return nil, err
		}
		site, _ := sites.Lookup(id)
		state := domain.StateFromArtifacts(latest)
		report.Documents = append(report.Documents, domain.DocumentStatus{
			Document:  id,
			Site:      site,
			State:     state,
			Latest:    latest,
			LastError: lastErrors[id],
		})
		report.Counts[state]++
	}
	return report, nil
}

// Rows returns every flattened row in metadata order, then asset order.
func (p *Pipeline) Rows(ctx context.Context) ([]domain.FlatRow, error) {
	sites, _, err := p.loadSites(ctx)
	if err != nil {
		return nil, err
	}
	return p.rowsFor(ctx, sites.Documents())
}

func (p *Pipeline) rowsFor(ctx context.Context, docs []domain.DocumentID) ([]domain.FlatRow, error) {
	rows := []domain.FlatRow{}
	for _, id := range docs {
		data, err := p.store.Read(ctx, id, domain.StageFlattenedRows)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read rows of %s: %w", id, err)
		}
		docRows, err := DecodeRows(data)
		if err != nil {
			return nil, fmt.Errorf("rows of %s: %w", id, err)
		}
		rows = append(rows, docRows...)
	}
	return rows, nil
}

// Excerpt runs the relevance reducer on a document's translated text,
// falling back to raw text when no translation exists.
func (p *Pipeline) Excerpt(ctx context.Context, id domain.DocumentID) (*domain.Excerpt, error) {
	data, err := p.store.Read(ctx, id, domain.StageTranslatedText)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("%s: no translated text, using raw text", id)
		data, err = p.store.Read(ctx, id, domain.StageRawText)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.MissingInputError{Document: id, Stage: domain.StageTranslatedText}
	}
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return p.reducer.Reduce(id, string(data)), nil
}

func (p *Pipeline) loadSites(ctx context.Context) (*domain.SiteIndex, []domain.SiteMetadata, error) {
	if p.metadata == nil {
		return nil, nil, fmt.Errorf("%w: no site metadata source configured", domain.ErrInvalidInput)
	}
	rows, err := p.metadata.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load site metadata: %w", err)
	}
	sites, dups := domain.NewSiteIndex(rows)
	return sites, dups, nil
}

// selectDocuments returns the requested documents, or every site when none are requested.
func selectDocuments(sites *domain.SiteIndex, requested []domain.DocumentID) ([]domain.DocumentID, error) {
	if len(requested) == 0 {
		return sites.Documents(), nil
	}
	seen := make(map[domain.DocumentID]bool, len(requested))
	out := make([]domain.DocumentID, 0, len(requested))
	for _, id := range requested {
		if err := id.Validate(); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// initStates seeds each document's state from its latest persisted artifact.
func (p *Pipeline) initStates(ctx context.Context, rc *RunContext, docs []domain.DocumentID) error {
	for _, id := range docs {
		latest, err := p.latestStage(ctx, id)
		if err != nil {
			return err
		}
		rc.Init(id, domain.StateFromArtifacts(latest))
	}
	return nil
}

// latestStage returns the furthest persisted stage of a document, or "" if none.
func (p *Pipeline) latestStage(ctx context.Context, id domain.DocumentID) (domain.Stage, error) {
	stages := domain.PersistedStages()
	for i := len(stages) - 1; i >= 0; i-- {
		exists, err := p.store.Exists(ctx, id, stages[i])
		if err != nil {
			return "", fmt.Errorf("check %s of %s: %w", stages[i], id, err)
		}
		if exists {
			return stages[i], nil
		}
	}
	return "", nil
}

func (p *Pipeline) startRun(ctx context.Context, rc *RunContext) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.StartRun(ctx, domain.RunRecord{ID: rc.ID, StartedAt: rc.StartedAt}); err != nil {
		logger.Warn("record run start: %v", err)
	}
}

func (p *Pipeline) recordStage(ctx context.Context, runID string, summary domain.RunSummary) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordStage(context.WithoutCancel(ctx), runID, summary); err != nil {
		logger.Warn("record %s summary: %v", summary.Step, err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, rc *RunContext, report *domain.PipelineReport) {
	if p.ledger == nil {
		return
	}
	run := domain.RunRecord{
		ID:         rc.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Stages:     report.Stages,
	}
	if err := p.ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("record run finish: %v", err)
	}
}

// passthroughTranslator returns text unchanged.
type passthroughTranslator struct{}

func (passthroughTranslator) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}
