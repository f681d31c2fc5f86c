package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/adapters/driven/export"
	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
)

var (
	runMetadata string
	runOutput   string
	runProgress bool
	runDocs     []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run translate, extract and flatten over every site",
	Long: `Runs the pipeline stages in order over every document listed in the site
metadata table. Documents whose stage output already exists are skipped, so a
second run only retries failures and picks up newly ingested text.

Per-document failures are reported and never stop the run.`,
	RunE: runRun,
}

var stageCmd = &cobra.Command{
	Use:       "stage <translate|extract|flatten>",
	Short:     "Run a single pipeline stage",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(driving.StepTranslate), string(driving.StepExtract), string(driving.StepFlatten)},
	RunE:      runStage,
}

func init() {
	runCmd.Flags().StringVar(&runMetadata, "metadata", "", "site metadata table (.csv or .xlsx)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the final table to this .xlsx or .csv file")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "show live progress")
	runCmd.Flags().StringSliceVar(&runDocs, "document", nil, "restrict the run to these document ids")

	stageCmd.Flags().StringVar(&runMetadata, "metadata", "", "site metadata table (.csv or .xlsx)")
	stageCmd.Flags().StringSliceVar(&runDocs, "document", nil, "restrict the stage to these document ids")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stageCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	return executeSteps(cmd, driving.Steps(), runOutput, runProgress)
}

func runStage(cmd *cobra.Command, args []string) error {
	step := driving.Step(args[0])
	if !step.IsValid() {
		return fmt.Errorf("unknown stage %q (want translate, extract or flatten)", args[0])
	}
	return executeSteps(cmd, []driving.Step{step}, "", false)
}

func executeSteps(cmd *cobra.Command, steps []driving.Step, output string, live bool) error {
	opts, err := runOptions(runDocs)
	if err != nil {
		return err
	}

	relay := newProgressRelay()
	needBackends := false
	for _, s := range steps {
		needBackends = needBackends || s == driving.StepExtract
	}

	svc, release, err := loadServices(cmd, FactoryOptions{
		Metadata:     runMetadata,
		NeedBackends: needBackends,
		Progress:     relay,
	})
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := func() {}
	if live {
		stop = startProgress(cmd, relay, cancel)
	}

	var report *domain.PipelineReport
	if len(steps) == 1 {
		report, err = svc.Pipeline.RunStep(ctx, steps[0], opts)
	} else {
		report, err = svc.Pipeline.Run(ctx, opts)
	}
	stop()
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printReport(cmd, report)

	if output == "" {
		return nil
	}
	n, err := exportRows(cmd.Context(), svc.Pipeline, output)
	if err != nil {
		return err
	}
	cmd.Printf("Wrote %d rows to %s\n", n, output)
	return nil
}

func runOptions(ids []string) (driving.RunOptions, error) {
	var opts driving.RunOptions
	for _, s := range ids {
		id, err := domain.ParseDocumentID(s)
		if err != nil {
			return opts, err
		}
		opts.Documents = append(opts.Documents, id)
	}
	return opts, nil
}

// exportRows writes every flat row to path in the format its extension selects.
func exportRows(ctx context.Context, pipeline driving.PipelineService, path string) (int, error) {
	exporter, err := export.ForPath(path)
	if err != nil {
		return 0, err
	}
	rows, err := pipeline.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rows: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	if err := exporter.Export(ctx, f, rows); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("export %s: %w", exporter.Format(), err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	return len(rows), nil
}
