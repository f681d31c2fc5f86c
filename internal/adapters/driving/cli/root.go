// Package cli provides the permit-assets command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

var version = "dev"

var (
	configDir string
	verbose   bool
)

// FactoryOptions selects how services are built for one command.
type FactoryOptions struct {
	// ConfigDir overrides the configuration directory. Empty uses the default.
	ConfigDir string

	// Metadata overrides pipeline.metadata.
	Metadata string

	// NeedBackends builds and pings the extraction backends.
	NeedBackends bool

	// Progress receives pipeline progress events.
	Progress driven.ProgressReporter
}

// Services are the driving ports a command works with.
type Services struct {
	Pipeline driving.PipelineService
	Ingest   driving.IngestService
	Settings driving.SettingsService

	// Warnings are non-fatal problems found while building, such as an
	// unreachable secondary backend.
	Warnings []string

	// Close releases stores and backends. It may be nil.
	Close func()
}

// ServiceFactory builds services for a command invocation.
type ServiceFactory func(ctx context.Context, opts FactoryOptions) (*Services, error)

var serviceFactory ServiceFactory

// SetServiceFactory sets the factory used by every command.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "permit-assets",
	Short: "Extract industrial assets from permit documents",
	Long: `permit-assets turns the text of environmental permit documents into a
table of industrial assets (generators, boilers, transformers, ...) joined
with site metadata.

Each stage writes its result to the artifact store, so an interrupted run
resumes where it stopped:

  raw_text -> translated_text -> structured_result -> flattened_rows`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.permit-assets)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadServices builds services for cmd and prints any warnings.
// The caller must call the returned release func.
func loadServices(cmd *cobra.Command, opts FactoryOptions) (*Services, func(), error) {
	if serviceFactory == nil {
		return nil, nil, errors.New("services not configured")
	}
	opts.ConfigDir = configDir

	svc, err := serviceFactory(cmd.Context(), opts)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range svc.Warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}
	release := func() {
		if svc.Close != nil {
			svc.Close()
		}
	}
	return svc, release, nil
}
