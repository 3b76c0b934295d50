package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the inventory mapping",
	Long: `Imports an inventory workbook and marks stored certificates whose serial
number appears in it as mapped.`,
}

var mappingImportCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import an inventory workbook and apply it",
	Long: `Reads an XLSX workbook with the columns "Serial Number", "Certificate Name"
and "Certificate Status", replaces the stored mapping table and applies it to
the stored certificates.`,
	Args: cobra.ExactArgs(1),
	RunE: runMappingImport,
}

var mappingApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Re-apply the stored mapping to the certificates",
	RunE:  runMappingApply,
}

func init() {
	mappingCmd.AddCommand(mappingImportCmd)
	mappingCmd.AddCommand(mappingApplyCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingImport(cmd *cobra.Command, args []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	imported, err := svc.Mapping.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	cmd.Printf("Imported %d inventory rows.\n", imported)

	return applyMapping(cmd, svc)
}

func runMappingApply(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	return applyMapping(cmd, svc)
}

func applyMapping(cmd *cobra.Command, svc *Services) error {
	applied, err := svc.Mapping.Apply(cmd.Context())
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}
	cmd.Printf("Marked %d certificates as mapped.\n", applied)
	return nil
}
