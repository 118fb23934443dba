package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, generation defaults and other options.

Settings live in ~/.goldsmith/config.toml. Use subcommands to configure
specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used to group document chunks.

Without one, document mode groups chunks by keyword similarity.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that writes, evolves and answers inputs.`,
	RunE:  runSettingsLLM,
}

var settingsGenerationCmd = &cobra.Command{
	Use:   "generation",
	Short: "Configure generation defaults",
	Long:  `Set the default evolution rounds, breadth evolutions and expected outputs.`,
	RunE:  runSettingsGeneration,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsGenerationCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errNoSettings
	}

	settings, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model, settings.LLM.BaseURL, settings.LLM.APIKey,
		settings.LLM.IsConfigured())

	// Embedding settings
	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.BaseURL,
		settings.Embedding.APIKey, settings.Embedding.IsConfigured())

	gen := settings.Generation
	cmd.Println("[Generation]")
	cmd.Printf("  Goldens per context: %d\n", gen.MaxGoldensPerContext)
	cmd.Printf("  Goldens per document group: %d\n", gen.MaxGoldensPerDocument)
	cmd.Printf("  Evolutions: %d\n", gen.NumEvolutions)
	cmd.Printf("  Breadth evolutions: %s\n", yesNo(gen.EnableBreadthEvolve))
	cmd.Printf("  Evolution types: %s\n", evolutionList(gen.AllowedEvolutionTypes))
	cmd.Printf("  Expected outputs: %s\n", yesNo(gen.IncludeExpectedOutput))
	cmd.Printf("  Max passages per group: %d\n", gen.MaxPassagesPerGroup)
	cmd.Println()

	chunk := settings.Chunking
	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d words (overlap %d)\n", chunk.ChunkSize, chunk.ChunkOverlap)
	cmd.Printf("  Group size: %d\n", chunk.GroupSize)
	cmd.Printf("  Similarity threshold: %.2f\n", chunk.SimilarityThreshold)
	if chunk.MaxGroups > 0 {
		cmd.Printf("  Max groups: %d\n", chunk.MaxGroups)
	} else {
		cmd.Printf("  Max groups: one per document\n")
	}
	cmd.Println()

	exec := settings.Execution
	cmd.Println("[Execution]")
	cmd.Printf("  Concurrent: %s (%d workers)\n", yesNo(exec.Concurrent), exec.MaxWorkers)
	if exec.Seed != 0 {
		cmd.Printf("  Seed: %d\n", exec.Seed)
	} else {
		cmd.Printf("  Seed: clock\n")
	}
	cmd.Printf("  Call timeout: %s\n", exec.CallTimeout)
	cmd.Printf("  Attempts per call: %d\n", exec.MaxAttempts)
	if exec.RequestsPerSecond > 0 {
		cmd.Printf("  Requests per second: %.2f\n", exec.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[Output]")
	cmd.Printf("  Directory: %s\n", settings.Output.Dir)
	cmd.Printf("  Format: %s\n", settings.Output.Format)
	if settings.Cache.EmbeddingsDir != "" {
		cmd.Printf("  Embedding cache: %s\n", settings.Cache.EmbeddingsDir)
	}
	cmd.Println()

	if settings.Telemetry.TraceStdout || settings.Telemetry.MetricsAddr != "" {
		cmd.Println("[Telemetry]")
		cmd.Printf("  Trace to stdout: %s\n", yesNo(settings.Telemetry.TraceStdout))
		if settings.Telemetry.MetricsAddr != "" {
			cmd.Printf("  Metrics address: %s\n", settings.Telemetry.MetricsAddr)
		}
		cmd.Println()
	}

	// Validation
	if err := services.Settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'goldsmith settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (not set)")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errNoSettings
	}

	cmd.Println("Goldsmith Settings Wizard")
	cmd.Println("=========================")
	cmd.Println()

	reader := newReader(cmd)

	// Step 1: LLM provider (required)
	cmd.Println("Step 1: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM writes seed inputs, evolves them and answers them.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	// Step 2: Embedding provider (optional)
	cmd.Println("Step 2: Configure Embedding Provider (optional)")
	cmd.Println("-----------------------------------------------")
	cmd.Println("Embeddings group document chunks by meaning. Without them, keyword")
	cmd.Println("similarity is used.")
	cmd.Print("\nConfigure an embedding provider? [y/N]: ")
	if answer := strings.ToLower(readLine(reader)); answer == "y" || answer == "yes" {
		cmd.Println()
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped.")
		cmd.Println()
	}

	// Step 3: Generation defaults
	cmd.Println("Step 3: Generation Defaults")
	cmd.Println("---------------------------")
	if err := configureGeneration(cmd, reader); err != nil {
		return err
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := services.Settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errNoSettings
	}
	return configureEmbeddingProvider(cmd, newReader(cmd))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errNoSettings
	}
	return configureLLMProvider(cmd, newReader(cmd))
}

func runSettingsGeneration(cmd *cobra.Command, _ []string) error {
	if services.Settings == nil {
		return errNoSettings
	}
	return configureGeneration(cmd, newReader(cmd))
}

func configureGeneration(cmd *cobra.Command, reader *bufio.Reader) error {
	settings, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	gen := settings.Generation

	cmd.Printf("Evolution rounds per seed [%d]: ", gen.NumEvolutions)
	gen.NumEvolutions = parseCount(readLine(reader), gen.NumEvolutions)

	cmd.Printf("Goldens per context group [%d]: ", gen.MaxGoldensPerContext)
	gen.MaxGoldensPerContext = parseCount(readLine(reader), gen.MaxGoldensPerContext)

	cmd.Printf("Allow breadth evolutions? [%s]: ", yesNo(gen.EnableBreadthEvolve))
	gen.EnableBreadthEvolve = parseYesNo(readLine(reader), gen.EnableBreadthEvolve)

	cmd.Printf("Generate expected outputs? [%s]: ", yesNo(gen.IncludeExpectedOutput))
	gen.IncludeExpectedOutput = parseYesNo(readLine(reader), gen.IncludeExpectedOutput)

	if err := services.Settings.SetGeneration(gen); err != nil {
		return fmt.Errorf("failed to save generation settings: %w", err)
	}
	cmd.Println("Generation defaults saved.")
	cmd.Println()
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := services.Settings.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := services.Settings.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := services.Settings.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := services.Settings.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

func newReader(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

// parseCount returns a non-negative integer, or defaultVal for empty or invalid input.
func parseCount(input string, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}

func parseYesNo(input string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func evolutionList(kinds []domain.EvolutionKind) string {
	if len(kinds) == 0 {
		return "all"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
