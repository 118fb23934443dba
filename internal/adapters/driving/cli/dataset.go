package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

var (
	datasetJSON   bool
	exportFormat  string
	importName    string
	showLimit     int
	deleteConfirm bool
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage saved datasets",
	Long:  `List, show, export, import or delete saved golden datasets.`,
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets",
	Args:  cobra.NoArgs,
	RunE:  runDatasetList,
}

var datasetShowCmd = &cobra.Command{
	Use:   "show [dataset-id]",
	Short: "Show a dataset's goldens",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetShow,
}

var datasetExportCmd = &cobra.Command{
	Use:   "export [dataset-id] [path]",
	Short: "Write a dataset to a file",
	Long: `Write a dataset's goldens to a JSON, CSV or YAML file.

The format is taken from --format, then from the path extension. When the path
is a directory (or omitted), a timestamped file name is chosen.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDatasetExport,
}

var datasetImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Store goldens from a dataset file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetImport,
}

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete [dataset-id]",
	Short: "Delete a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetDelete,
}

func init() {
	datasetListCmd.Flags().BoolVar(&datasetJSON, "json", false, "output as JSON")
	datasetShowCmd.Flags().BoolVar(&datasetJSON, "json", false, "output as JSON")
	datasetShowCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "show at most this many goldens (0 = all)")
	datasetExportCmd.Flags().StringVar(&exportFormat, "format", "", "dataset format: json, csv or yaml")
	datasetImportCmd.Flags().StringVar(&importName, "name", "", "dataset name (default: file name)")
	datasetDeleteCmd.Flags().BoolVarP(&deleteConfirm, "yes", "y", false, "delete without confirmation")

	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetShowCmd)
	datasetCmd.AddCommand(datasetExportCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetDeleteCmd)
	rootCmd.AddCommand(datasetCmd)
}

func runDatasetList(cmd *cobra.Command, _ []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	summaries, err := services.Datasets.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	if datasetJSON {
		return printJSON(cmd, summaries)
	}
	if len(summaries) == 0 {
		cmd.Println("No datasets found. Run 'goldsmith generate' to create one.")
		return nil
	}
	cmd.Println(datasetTable(summaries))
	return nil
}

func runDatasetShow(cmd *cobra.Command, args []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	ds, err := services.Datasets.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get dataset: %w", err)
	}

	goldens := ds.Goldens
	if showLimit > 0 && len(goldens) > showLimit {
		goldens = goldens[:showLimit]
	}
	if datasetJSON {
		return printJSON(cmd, goldens)
	}

	cmd.Printf("Dataset: %s (%s)\n", ds.Name, ds.ID)
	cmd.Printf("  Source:   %s\n", ds.SourceKind)
	cmd.Printf("  Created:  %s\n", ds.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	cmd.Printf("  Goldens:  %d\n", len(ds.Goldens))
	cmd.Printf("  Warnings: %d\n", len(ds.Warnings))

	for i := range goldens {
		printGolden(cmd, i, &goldens[i])
	}
	if len(goldens) < len(ds.Goldens) {
		cmd.Printf("\n... %d more\n", len(ds.Goldens)-len(goldens))
	}
	return nil
}

func printGolden(cmd *cobra.Command, i int, g *domain.Golden) {
	cmd.Println()
	cmd.Println(cliStyles.Subtitle.Render(fmt.Sprintf("[%d] %s", i+1, g.Input)))
	if g.ExpectedOutput != nil {
		cmd.Printf("    Expected: %s\n", *g.ExpectedOutput)
	}
	if len(g.Trace.Steps) > 0 {
		steps := make([]string, len(g.Trace.Steps))
		for j, k := range g.Trace.Steps {
			steps[j] = string(k)
		}
		trace := strings.Join(steps, " → ")
		if g.Trace.Truncated {
			trace += " (truncated)"
		}
		cmd.Printf("    Trace:    %s\n", trace)
	}
	if g.SourceFile != "" {
		cmd.Printf("    Source:   %s\n", g.SourceFile)
	}
	for j, passage := range g.Context {
		cmd.Println(cliStyles.Muted.Render(fmt.Sprintf("    context %d: %s", j+1, truncate(passage, 100))))
	}
}

func runDatasetExport(cmd *cobra.Command, args []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	path := "."
	if len(args) == 2 {
		path = args[1]
	}
	kind := domain.DatasetKind(exportFormat)
	if kind != "" && !kind.IsValid() {
		return domain.NewInvalidConfigError("format", fmt.Sprintf("unknown dataset format %q", exportFormat))
	}

	written, err := services.Datasets.Export(cmd.Context(), args[0], kind, path)
	if err != nil {
		return fmt.Errorf("failed to export dataset: %w", err)
	}
	cmd.Printf("Exported to %s\n", written)
	return nil
}

func runDatasetImport(cmd *cobra.Command, args []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	ds, err := services.Datasets.Import(cmd.Context(), importName, args[0])
	if err != nil {
		return fmt.Errorf("failed to import dataset: %w", err)
	}
	cmd.Printf("Imported %d goldens as %s (%s)\n", len(ds.Goldens), ds.Name, ds.ID)
	return nil
}

func runDatasetDelete(cmd *cobra.Command, args []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	id := args[0]
	if !deleteConfirm {
		cmd.Printf("Delete dataset %s? [y/N]: ", id)
		answer := strings.ToLower(readLine(newReader(cmd)))
		if answer != "y" && answer != "yes" {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := services.Datasets.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	cmd.Printf("Deleted dataset %s\n", id)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
