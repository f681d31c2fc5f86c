package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

var (
	excerptNumbered bool
	excerptStats    bool
)

var excerptCmd = &cobra.Command{
	Use:   "excerpt <document-id>",
	Short: "Preview the relevant excerpt of a document",
	Long: `Runs the relevance reducer over a document's text and prints the lines that
would be sent to the extraction backends. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runExcerpt,
}

func init() {
	excerptCmd.Flags().BoolVarP(&excerptNumbered, "numbered", "n", false, "prefix lines with their source line number")
	excerptCmd.Flags().BoolVar(&excerptStats, "stats", false, "print reduction statistics after the excerpt")
	rootCmd.AddCommand(excerptCmd)
}

func runExcerpt(cmd *cobra.Command, args []string) error {
	id, err := domain.ParseDocumentID(args[0])
	if err != nil {
		return err
	}

	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()

	excerpt, err := svc.Pipeline.Excerpt(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to build excerpt: %w", err)
	}

	if excerpt.IsEmpty() {
		cmd.Println("No relevant lines found.")
	} else if excerptNumbered {
		cmd.Println(excerpt.Numbered())
	} else {
		cmd.Println(excerpt.Text())
	}

	if excerptStats {
		s := excerpt.Stats
		cmd.Println()
		cmd.Printf("Lines: %d selected of %d (%d seeds, %d excluded)\n",
			s.SelectedLines, s.TotalLines, s.Seeds, s.ExcludedLines)
		cmd.Printf("Compression: %.1f%%\n", 100*excerpt.CompressionRatio())
		if s.Truncated {
			cmd.Println("Excerpt truncated at the line cap.")
		}
		printKeywordHits(cmd, s.TopKeywords(10))
	}
	return nil
}
