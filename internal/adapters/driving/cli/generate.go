package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// generateFlags are shared by every generate subcommand.
type generateFlags struct {
	maxPerUnit int
	evolutions int
	breadth    bool
	kinds      []string
	expected   bool
	concurrent bool
	workers    int
	seed       uint64
	out        string
	format     string
	name       string
	strict     bool
}

var genFlags generateFlags

var (
	contextsFile string

	promptsFile string
	promptArgs  []string

	scratchSubject string
	scratchTask    string
	scratchFormat  string
	scratchCount   int

	chunkSize    int
	chunkOverlap int
	groupSize    int
	maxGroups    int
	threshold    float64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate goldens",
	Long: `Generate evaluation goldens from context groups, documents, prompts or a
task description.

Every run is saved as a dataset and exported to --out (or output.dir from the
config file). Units that fail are reported as warnings; the remaining goldens
are still written. Use --strict to exit with an error when any unit degraded.`,
}

var generateContextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "Generate goldens from context groups",
	Long: `Generate goldens grounded in context groups read from a JSON or YAML file.

The file holds a list of groups, each a list of passages:

  [["Paris is the capital of France.", "It lies on the Seine."],
   ["Photosynthesis converts light into chemical energy."]]

Use --file - to read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runGenerateContexts,
}

var generateDocsCmd = &cobra.Command{
	Use:   "docs <path>...",
	Short: "Generate goldens from documents",
	Long: `Chunk documents, group semantically close chunks and generate goldens from
each group. Directories are searched recursively for supported files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerateDocs,
}

var generatePromptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Evolve prompts into goldens",
	Long: `Evolve seed prompts into harder inputs without context.

Prompts come from repeated -p flags and from --file. A text file holds one
prompt per line; blank lines and lines starting with # are skipped. JSON and
YAML files hold a list of strings.`,
	Args: cobra.NoArgs,
	RunE: runGeneratePrompts,
}

var generateScratchCmd = &cobra.Command{
	Use:   "scratch",
	Short: "Generate goldens from a task description",
	Args:  cobra.NoArgs,
	RunE:  runGenerateScratch,
}

func init() {
	pf := generateCmd.PersistentFlags()
	pf.IntVar(&genFlags.maxPerUnit, "max-per-unit", 0, "maximum goldens per context group, prompt or seed")
	pf.IntVar(&genFlags.evolutions, "evolutions", 0, "evolution rounds per seed")
	pf.BoolVar(&genFlags.breadth, "breadth", false, "allow breadth evolutions")
	pf.StringSliceVar(&genFlags.kinds, "evolution", nil, "restrict evolutions to this kind (repeatable)")
	pf.BoolVar(&genFlags.expected, "expected-output", false, "generate expected outputs")
	pf.BoolVar(&genFlags.concurrent, "concurrent", true, "process units in parallel")
	pf.IntVar(&genFlags.workers, "workers", 0, "maximum parallel units")
	pf.Uint64Var(&genFlags.seed, "seed", 0, "seed for strategy selection (0 uses the clock)")
	pf.StringVarP(&genFlags.out, "out", "o", "", "output file or directory")
	pf.StringVar(&genFlags.format, "format", "", "dataset format: json, csv or yaml")
	pf.StringVar(&genFlags.name, "name", "", "dataset name")
	pf.BoolVar(&genFlags.strict, "strict", false, "fail when any unit produced a warning")

	generateContextsCmd.Flags().StringVarP(&contextsFile, "file", "f", "", "JSON or YAML file of context groups")
	_ = generateContextsCmd.MarkFlagRequired("file")

	generateDocsCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "words per chunk")
	generateDocsCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "words shared by neighbouring chunks")
	generateDocsCmd.Flags().IntVar(&groupSize, "group-size", 0, "passages per context group")
	generateDocsCmd.Flags().IntVar(&maxGroups, "max-groups", 0, "maximum context groups (0 = one per document)")
	generateDocsCmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity for grouped passages")

	generatePromptsCmd.Flags().StringVarP(&promptsFile, "file", "f", "", "file of prompts")
	generatePromptsCmd.Flags().StringArrayVarP(&promptArgs, "prompt", "p", nil, "seed prompt (repeatable)")

	generateScratchCmd.Flags().StringVar(&scratchSubject, "subject", "", "what the inputs are about")
	generateScratchCmd.Flags().StringVar(&scratchTask, "task", "", "what the system under test does")
	generateScratchCmd.Flags().StringVar(&scratchFormat, "output-format", "", "format the inputs should take")
	generateScratchCmd.Flags().IntVarP(&scratchCount, "num", "n", 5, "number of seed inputs")
	_ = generateScratchCmd.MarkFlagRequired("subject")
	_ = generateScratchCmd.MarkFlagRequired("task")

	generateCmd.AddCommand(generateContextsCmd)
	generateCmd.AddCommand(generateDocsCmd)
	generateCmd.AddCommand(generatePromptsCmd)
	generateCmd.AddCommand(generateScratchCmd)
	rootCmd.AddCommand(generateCmd)
}

// generation is one call into the generation service.
type generation func(ctx context.Context, svc driving.GenerationService, req domain.GenerationRequest) (*domain.GenerationResult, error)

func runGenerateContexts(cmd *cobra.Command, _ []string) error {
	groups, err := readContexts(cmd.InOrStdin(), contextsFile)
	if err != nil {
		return err
	}
	return runGeneration(cmd, domain.UnitContext,
		func(g domain.GenerationSettings) int { return g.MaxGoldensPerContext },
		func(ctx context.Context, svc driving.GenerationService, req domain.GenerationRequest) (*domain.GenerationResult, error) {
			return svc.FromContexts(ctx, groups, req)
		})
}

func runGenerateDocs(cmd *cobra.Command, args []string) error {
	var opts domain.ContextOptions
	return runGenerationWith(cmd, domain.UnitContext,
		func(g domain.GenerationSettings) int { return g.MaxGoldensPerDocument },
		func(settings *domain.AppSettings) {
			applyChunkingFlags(cmd, &settings.Chunking)
			opts = settings.Chunking.ContextOptions(settings.Execution.Seed)
		},
		func(ctx context.Context, svc driving.GenerationService, req domain.GenerationRequest) (*domain.GenerationResult, error) {
			return svc.FromDocuments(ctx, args, req, opts)
		})
}

func runGeneratePrompts(cmd *cobra.Command, _ []string) error {
	prompts := append([]string(nil), promptArgs...)
	if promptsFile != "" {
		fromFile, err := readPrompts(cmd.InOrStdin(), promptsFile)
		if err != nil {
			return err
		}
		prompts = append(prompts, fromFile...)
	}
	if len(prompts) == 0 {
		return errors.New("no prompts given: use -p or --file")
	}
	return runGeneration(cmd, domain.UnitPrompt,
		func(domain.GenerationSettings) int { return 1 },
		func(ctx context.Context, svc driving.GenerationService, req domain.GenerationRequest) (*domain.GenerationResult, error) {
			return svc.FromPrompts(ctx, prompts, req)
		})
}

func runGenerateScratch(cmd *cobra.Command, _ []string) error {
	spec := domain.ScratchSpec{
		Subject:           scratchSubject,
		Task:              scratchTask,
		OutputFormat:      scratchFormat,
		NumInitialGoldens: scratchCount,
	}
	return runGeneration(cmd, domain.UnitScratch,
		func(domain.GenerationSettings) int { return 1 },
		func(ctx context.Context, svc driving.GenerationService, req domain.GenerationRequest) (*domain.GenerationResult, error) {
			return svc.FromScratch(ctx, spec, req)
		})
}

func runGeneration(cmd *cobra.Command, kind domain.UnitKind, maxPerUnit func(domain.GenerationSettings) int, gen generation) error {
	return runGenerationWith(cmd, kind, maxPerUnit, nil, gen)
}

// runGenerationWith loads settings, applies flag overrides, runs gen, then
// saves, exports and reports the result.
func runGenerationWith(
	cmd *cobra.Command,
	kind domain.UnitKind,
	maxPerUnit func(domain.GenerationSettings) int,
	adjust func(*domain.AppSettings),
	gen generation,
) error {
	if services.Settings == nil {
		return errNoSettings
	}
	if services.Generation == nil {
		return errNoGeneration
	}

	settings, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	applyExecutionFlags(cmd, &settings.Execution)
	if adjust != nil {
		adjust(settings)
	}
	req, err := buildRequest(cmd, settings.Generation, maxPerUnit(settings.Generation))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, cleanup, err := services.Generation(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := gen(ctx, svc, req)
	if err != nil {
		return err
	}

	report := runReport{result: result}
	if err := saveAndExport(ctx, cmd, settings.Output, kind, req, &report); err != nil {
		return err
	}
	printReport(cmd, report)

	if genFlags.strict && len(result.Warnings) > 0 {
		return warningsError(result.Warnings)
	}
	return nil
}

func saveAndExport(
	ctx context.Context, cmd *cobra.Command, output domain.OutputSettings,
	kind domain.UnitKind, req domain.GenerationRequest, report *runReport,
) error {
	if services.Datasets == nil {
		return errNoDatasets
	}
	ds, err := services.Datasets.Save(ctx, genFlags.name, kind, req, report.result)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	report.dataset = ds

	out := output.Dir
	if cmd.Flags().Changed("out") {
		out = genFlags.out
	}
	if out == "" {
		return nil
	}
	format := output.Format
	if cmd.Flags().Changed("format") {
		format = domain.DatasetKind(genFlags.format)
	}
	if _, ok := domain.DatasetKindFromPath(out); ok && !cmd.Flags().Changed("format") {
		// An explicit file extension picks the format.
		format = ""
	}
	path, err := services.Datasets.Export(ctx, ds.ID, format, out)
	if err != nil {
		return fmt.Errorf("failed to export dataset: %w", err)
	}
	report.exported = path
	return nil
}

func warningsError(warnings []domain.Warning) error {
	errs := make([]error, len(warnings))
	for i, w := range warnings {
		errs[i] = fmt.Errorf("%s %s", warningLabel(w), w.Message)
	}
	return fmt.Errorf("%d units degraded: %w", len(warnings), errors.Join(errs...))
}

// buildRequest merges the changed flags over the configured defaults.
func buildRequest(cmd *cobra.Command, gen domain.GenerationSettings, maxPerUnit int) (domain.GenerationRequest, error) {
	flags := cmd.Flags()
	req := gen.Request(maxPerUnit)

	if flags.Changed("max-per-unit") {
		req.MaxGoldensPerUnit = genFlags.maxPerUnit
	}
	if flags.Changed("evolutions") {
		req.NumEvolutions = genFlags.evolutions
	}
	if flags.Changed("breadth") {
		req.BreadthEnabled = genFlags.breadth
	}
	if flags.Changed("expected-output") {
		req.IncludeExpectedOutput = genFlags.expected
	}
	if flags.Changed("evolution") {
		req.AllowedEvolutions = nil
		for _, name := range genFlags.kinds {
			k := domain.EvolutionKind(strings.TrimSpace(name))
			if !k.IsValid() {
				return req, domain.NewInvalidConfigError("evolution", fmt.Sprintf("unknown evolution kind %q", name))
			}
			req.AllowedEvolutions = append(req.AllowedEvolutions, k)
		}
	}
	return req, nil
}

func applyExecutionFlags(cmd *cobra.Command, exec *domain.ExecutionSettings) {
	flags := cmd.Flags()
	if flags.Changed("concurrent") {
		exec.Concurrent = genFlags.concurrent
	}
	if flags.Changed("workers") {
		exec.MaxWorkers = genFlags.workers
	}
	if flags.Changed("seed") {
		exec.Seed = genFlags.seed
	}
}

func applyChunkingFlags(cmd *cobra.Command, c *domain.ChunkingSettings) {
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		c.ChunkSize = chunkSize
	}
	if flags.Changed("chunk-overlap") {
		c.ChunkOverlap = chunkOverlap
	}
	if flags.Changed("group-size") {
		c.GroupSize = groupSize
	}
	if flags.Changed("max-groups") {
		c.MaxGroups = maxGroups
	}
	if flags.Changed("threshold") {
		c.SimilarityThreshold = threshold
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// readContexts parses a list of context groups. JSON is a subset of YAML,
// so anything that is not a .json file goes through the YAML decoder.
func readContexts(stdin io.Reader, path string) ([][]string, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}
	var groups [][]string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &groups)
	} else {
		err = yaml.Unmarshal(data, &groups)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse context groups: %w", err)
	}
	if len(groups) == 0 {
		return nil, domain.NewInvalidConfigError("contexts", "file contains no context groups")
	}
	return groups, nil
}

// readPrompts parses prompts from a JSON or YAML list, or from plain text
// with one prompt per line.
func readPrompts(stdin io.Reader, path string) ([]string, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.EqualFold(filepath.Ext(path), ".json"):
		var prompts []string
		if err := json.Unmarshal(data, &prompts); err != nil {
			return nil, fmt.Errorf("failed to parse prompts: %w", err)
		}
		return prompts, nil
	case isYAML(path):
		var prompts []string
		if err := yaml.Unmarshal(data, &prompts); err != nil {
			return nil, fmt.Errorf("failed to parse prompts: %w", err)
		}
		return prompts, nil
	}

	var prompts []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	return prompts, nil
}
