package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/ai"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/config/file"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/metadata"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/textsource"
	"github.com/custodia-labs/permit-assets/internal/adapters/driven/translate"
	"github.com/custodia-labs/permit-assets/internal/adapters/driving/cli"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/core/services"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// buildServices wires adapters to the core services for one command.
func buildServices(ctx context.Context, opts cli.FactoryOptions) (*cli.Services, error) {
	configDir, err := resolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configStore.Path(), err)
	}

	dataDir := settings.Pipeline.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	closers = append(closers, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database: %v", err)
		}
	})

	store, err := artifactStore(settings.Pipeline.Store, db, dataDir)
	if err != nil {
		closeAll()
		return nil, err
	}

	metadataPath := opts.Metadata
	if metadataPath == "" {
		metadataPath = settings.Pipeline.Metadata
	}
	sites, err := siteSource(metadataPath)
	if err != nil {
		closeAll()
		return nil, err
	}

	translator, err := translate.New(settings.Translation)
	if err != nil {
		closeAll()
		return nil, err
	}

	svc := &cli.Services{Settings: settingsService}

	var router *services.ExtractionRouter
	if opts.NeedBackends {
		backends, err := ai.CreateAndValidateBackends(ctx, settings.Extraction)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, backends.Close)
		svc.Warnings = append(svc.Warnings, backends.Warnings...)

		prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), map[string]string{
			driven.PromptAssetExtraction: services.DefaultExtractionPrompt,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open prompts: %w", err)
		}

		router, err = services.NewExtractionRouter(backends.List, services.RouterConfig{
			Retries: settings.Extraction.Retries,
			Timeout: settings.Extraction.Timeout,
		}, prompts)
		if err != nil {
			closeAll()
			return nil, err
		}
	}

	pipeline := services.NewPipeline(
		store,
		sites,
		translator,
		services.NewRelevanceReducer(settings.Reducer),
		router,
		settings.Pipeline.Workers,
	)
	pipeline.SetLedger(db.RunLedger())
	pipeline.SetProgress(opts.Progress)

	svc.Pipeline = pipeline
	svc.Ingest = services.NewIngestService(store,
		textsource.NewPlainText(),
		textsource.NewPDF(),
		textsource.NewHTML(),
		textsource.NewDOCX(),
	)
	svc.Close = closeAll
	return svc, nil
}

func resolveConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, file.DefaultDirName), nil
}

func artifactStore(kind domain.StoreKind, db *sqlite.Store, dataDir string) (driven.ArtifactStore, error) {
	switch kind {
	case domain.StoreSQLite:
		return db.ArtifactStore(), nil
	case domain.StoreFilesystem, "":
		store, err := filesystem.NewArtifactStore(filepath.Join(dataDir, "artifacts"))
		if err != nil {
			return nil, fmt.Errorf("open artifact store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: pipeline.store %q", domain.ErrUnsupportedType, kind)
	}
}

// noSites reports a missing metadata table when a command needs one.
type noSites struct{}

func (noSites) Load(context.Context) ([]domain.SiteMetadata, error) {
	return nil, fmt.Errorf("%w: no site metadata table; set pipeline.metadata or pass --metadata",
		domain.ErrInvalidInput)
}

func siteSource(path string) (driven.SiteMetadataSource, error) {
	if path == "" {
		return noSites{}, nil
	}
	return metadata.NewSource(path)
}
