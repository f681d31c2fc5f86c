package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/adapters/driving/watcher"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Import document text as raw_text artifacts",
	Long: `Imports every <document-id>.<ext> file in a directory as the raw text of
that document. Supported formats are .txt, .pdf (embedded text layer only),
.html and .docx. Documents that already have raw text are left unchanged.

With --watch the command keeps running and imports files as they appear.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep importing new files until interrupted")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := args[0]

	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()

	summary, err := svc.Ingest.IngestDir(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngest(cmd, summary)

	if !ingestWatch {
		if summary.Failed > 0 {
			return fmt.Errorf("%d files failed: %w", summary.Failed, errors.Join(summary.Errors...))
		}
		return nil
	}

	var filter func(string) bool
	if s, ok := svc.Ingest.(interface{ Supports(string) bool }); ok {
		filter = s.Supports
	}

	cmd.Printf("Watching %s for new files (Ctrl+C to stop)...\n", dir)
	return watcher.Watch(cmd.Context(), watcher.Config{Dir: dir, Filter: filter},
		func(ctx context.Context, paths []string) {
			printIngest(cmd, svc.Ingest.IngestFiles(ctx, paths))
		})
}

func printIngest(cmd *cobra.Command, s driving.IngestSummary) {
	cmd.Printf("Imported %d, skipped %d, failed %d\n", s.Imported, s.Skipped, s.Failed)
	for _, err := range s.Errors {
		cmd.Println(uiStyles.Error.Render("  " + err.Error()))
	}
}
