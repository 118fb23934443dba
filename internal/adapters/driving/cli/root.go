// Package cli provides the goldsmith command line interface.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// GenerationFactory builds a generation service for the given settings.
// The returned cleanup releases provider connections and flushes telemetry.
type GenerationFactory func(ctx context.Context, settings *domain.AppSettings) (driving.GenerationService, func(), error)

// PromptWatcher reloads prompt templates as they are edited.
type PromptWatcher interface {
	// Watch blocks until ctx is cancelled.
	Watch(ctx context.Context) error
}

// Services holds the driving ports the commands use.
type Services struct {
	// Generation is called once per command that generates goldens.
	Generation GenerationFactory

	// Datasets stores and exports generation runs.
	Datasets driving.DatasetService

	// Settings reads and writes the config file.
	Settings driving.SettingsService

	// Prompts is optional; long-running commands watch it.
	Prompts PromptWatcher

	// Metrics serves Prometheus metrics. Optional.
	Metrics http.Handler
}

var (
	services Services
	version  = "dev"

	verbose bool
	logJSON bool
)

var errNoGeneration = errors.New("generation service not configured")
var errNoDatasets = errors.New("dataset service not configured")
var errNoSettings = errors.New("settings service not configured")

var rootCmd = &cobra.Command{
	Use:   "goldsmith",
	Short: "Generate synthetic evaluation datasets",
	Long: `Goldsmith generates evaluation goldens for LLM applications.

It writes seed inputs from context passages, documents, prompts or a task
description, evolves them into harder variants, and saves the results as
JSON, CSV or YAML datasets.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetVerbose(verbose)
		logger.SetJSON(logJSON)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}

// SetServices injects the services the commands use.
func SetServices(s Services) {
	services = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
