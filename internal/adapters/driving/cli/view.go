package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view [dataset-id | file]",
	Short: "Browse datasets in the terminal",
	Long: `Open an interactive browser for saved datasets.

With an argument, open that dataset directly. The argument is tried as a saved
dataset ID first, then as a JSON, CSV or YAML dataset file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

// runApp starts the TUI. Tests replace it to avoid starting a terminal program.
var runApp = func(app *tui.App) error {
	return app.Run()
}

func runView(cmd *cobra.Command, args []string) error {
	if services.Datasets == nil {
		return errNoDatasets
	}

	app, err := tui.NewApp(tui.NewPorts(services.Datasets))
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	if len(args) == 1 {
		ds, err := services.Datasets.Open(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		app.WithDataset(ds)
	}

	return runApp(app)
}
