package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

var statusFailures bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress per state",
	Long: `Derives each document's state from the artifact store and prints the
counts per state together with the stage summaries of the last run.`,
	RunE: runStatus,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List documents with their state",
	RunE:  runDocuments,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFailures, "failures", false, "list documents that failed in the last run")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()

	report, err := svc.Pipeline.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	cmd.Printf("Documents: %d\n", len(report.Documents))
	printStateCounts(cmd, report.Counts)

	if run := report.LastRun; run != nil {
		cmd.Printf("Last run %s started %s", run.ID, run.StartedAt.Local().Format(time.DateTime))
		if run.FinishedAt.IsZero() {
			cmd.Println(" (did not finish)")
		} else {
			cmd.Printf(", took %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
		}
		printStages(cmd, run.Stages)
	} else {
		cmd.Println("No runs recorded.")
	}

	if statusFailures {
		printFailures(cmd, report.Documents)
	}
	return nil
}

func printFailures(cmd *cobra.Command, docs []domain.DocumentStatus) {
	t := newTable("document", "site", "stage reached", "error")
	n := 0
	for _, d := range docs {
		if d.LastError == "" {
			continue
		}
		n++
		t.Row(string(d.Document), d.Site.Naam, latestLabel(d.Latest), d.LastError)
	}
	if n == 0 {
		cmd.Println("No failures.")
		return
	}
	cmd.Println(t.Render())
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()

	report, err := svc.Pipeline.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(report.Documents) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	t := newTable("document", "naam", "gemeente", "state", "latest")
	for _, d := range report.Documents {
		t.Row(
			string(d.Document),
			d.Site.Naam,
			d.Site.Gemeente,
			uiStyles.State(d.State).Render(d.State.String()),
			latestLabel(d.Latest),
		)
	}
	cmd.Println(t.Render())
	return nil
}

func latestLabel(s domain.Stage) string {
	if s == "" {
		return "-"
	}
	return s.String()
}
