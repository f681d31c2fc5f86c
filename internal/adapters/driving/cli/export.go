package cli

import (
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <path.xlsx|path.csv>",
	Short: "Write the asset table to a file",
	Long: `Collects the flattened rows of every document in stable order and writes
them to an Excel workbook or a CSV file, chosen by the file extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, release, err := loadServices(cmd, FactoryOptions{})
	if err != nil {
		return err
	}
	defer release()

	n, err := exportRows(cmd.Context(), svc.Pipeline, args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Wrote %d rows to %s\n", n, args[0])
	return nil
}
