package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// DefaultExportFile is the output path used when -o is not given.
const DefaultExportFile = "certificates_export.xlsx"

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored certificates to a spreadsheet",
	Long: `Writes every stored certificate to an XLSX workbook with one row per
certificate. Nested fields are flattened into dot-separated columns.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", DefaultExportFile, "output file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOutput, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", exportOutput, closeErr)
		}
		if err != nil {
			_ = os.Remove(exportOutput)
		}
	}()

	n, err := svc.Export.Export(cmd.Context(), f)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errors.New(`no data to export; run "certsync sync start" first`)
		}
		return fmt.Errorf("export failed: %w", err)
	}

	cmd.Printf("Exported %d certificates to %s\n", n, exportOutput)
	return nil
}
