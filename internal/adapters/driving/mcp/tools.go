package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// RequestInput holds the generation options shared by every generate tool.
// Unset fields fall back to the configured defaults.
type RequestInput struct {
	MaxGoldens            *int     `json:"max_goldens_per_unit,omitempty" jsonschema:"maximum goldens per context group, prompt or scratch seed"`
	NumEvolutions         *int     `json:"num_evolutions,omitempty" jsonschema:"number of evolution rounds applied to each seed"`
	EnableBreadthEvolve   *bool    `json:"enable_breadth_evolve,omitempty" jsonschema:"allow breadth evolutions that change the topic"`
	EvolutionTypes        []string `json:"evolution_types,omitempty" jsonschema:"restrict evolutions to these kinds, e.g. reasoning or comparative"`
	IncludeExpectedOutput *bool    `json:"include_expected_output,omitempty" jsonschema:"generate an expected output for every golden"`
	Save                  bool     `json:"save,omitempty" jsonschema:"store the result as a dataset"`
	Name                  string   `json:"name,omitempty" jsonschema:"dataset name when saving"`
}

// request merges the input over the defaults for a unit of the given kind.
func (in RequestInput) request(defaults domain.GenerationSettings, kind domain.UnitKind) (domain.GenerationRequest, error) {
	maxPerUnit := defaults.MaxGoldensPerContext
	if kind != domain.UnitContext {
		maxPerUnit = 1
	}
	req := defaults.Request(maxPerUnit)

	if in.MaxGoldens != nil {
		req.MaxGoldensPerUnit = *in.MaxGoldens
	}
	if in.NumEvolutions != nil {
		req.NumEvolutions = *in.NumEvolutions
	}
	if in.EnableBreadthEvolve != nil {
		req.BreadthEnabled = *in.EnableBreadthEvolve
	}
	if in.IncludeExpectedOutput != nil {
		req.IncludeExpectedOutput = *in.IncludeExpectedOutput
	}
	if len(in.EvolutionTypes) > 0 {
		req.AllowedEvolutions = nil
		for _, name := range in.EvolutionTypes {
			k := domain.EvolutionKind(name)
			if !k.IsValid() {
				return req, domain.NewInvalidConfigError("evolution_types", fmt.Sprintf("unknown evolution kind %q", name))
			}
			req.AllowedEvolutions = append(req.AllowedEvolutions, k)
		}
	}
	return req, nil
}

// ContextsInput is the input schema for the generate_from_contexts tool.
type ContextsInput struct {
	Contexts [][]string `json:"contexts" jsonschema:"context groups, each a list of passages"`
	RequestInput
}

// PromptsInput is the input schema for the generate_from_prompts tool.
type PromptsInput struct {
	Prompts []string `json:"prompts" jsonschema:"seed prompts to evolve"`
	RequestInput
}

// ScratchInput is the input schema for the generate_from_scratch tool.
type ScratchInput struct {
	Subject      string `json:"subject" jsonschema:"what the inputs are about"`
	Task         string `json:"task" jsonschema:"what the system under test does with the inputs"`
	OutputFormat string `json:"output_format,omitempty" jsonschema:"format the inputs should take"`
	NumGoldens   int    `json:"num_goldens,omitempty" jsonschema:"number of seed inputs to generate (default 5)"`
	RequestInput
}

// GenerateOutput is the output schema for the generate tools.
type GenerateOutput struct {
	DatasetID string           `json:"dataset_id,omitempty"`
	Count     int              `json:"count"`
	Goldens   []domain.Golden  `json:"goldens"`
	Warnings  []domain.Warning `json:"warnings,omitempty"`
}

// ListDatasetsInput is the input schema for the list_datasets tool.
type ListDatasetsInput struct{}

// ListDatasetsOutput is the output schema for the list_datasets tool.
type ListDatasetsOutput struct {
	Datasets []DatasetInfo `json:"datasets"`
	Count    int           `json:"count"`
}

// DatasetInfo is the listing view of a dataset.
type DatasetInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SourceKind  string    `json:"source_kind"`
	GoldenCount int       `json:"golden_count"`
	Warnings    int       `json:"warnings"`
	CreatedAt   time.Time `json:"created_at"`
}

const defaultScratchGoldens = 5

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_from_contexts",
		Description: "Generate evaluation goldens grounded in the given context groups",
	}, s.handleFromContexts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_from_prompts",
		Description: "Evolve seed prompts into harder evaluation inputs",
	}, s.handleFromPrompts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_from_scratch",
		Description: "Generate evaluation goldens from a subject and task description",
	}, s.handleFromScratch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_datasets",
		Description: "List saved golden datasets",
	}, s.handleListDatasets)
}

func (s *Server) handleFromContexts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextsInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	req, err := input.request(s.ports.Defaults, domain.UnitContext)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	result, err := s.ports.Generation.FromContexts(ctx, input.Contexts, req)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	return s.finish(ctx, input.RequestInput, domain.UnitContext, req, result)
}

func (s *Server) handleFromPrompts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PromptsInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	req, err := input.request(s.ports.Defaults, domain.UnitPrompt)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	result, err := s.ports.Generation.FromPrompts(ctx, input.Prompts, req)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	return s.finish(ctx, input.RequestInput, domain.UnitPrompt, req, result)
}

func (s *Server) handleFromScratch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScratchInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	req, err := input.request(s.ports.Defaults, domain.UnitScratch)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	n := input.NumGoldens
	if n <= 0 {
		n = defaultScratchGoldens
	}
	spec := domain.ScratchSpec{
		Subject:           input.Subject,
		Task:              input.Task,
		OutputFormat:      input.OutputFormat,
		NumInitialGoldens: n,
	}
	result, err := s.ports.Generation.FromScratch(ctx, spec, req)
	if err != nil {
		return nil, GenerateOutput{}, err
	}
	return s.finish(ctx, input.RequestInput, domain.UnitScratch, req, result)
}

// finish optionally saves the result and shapes the tool output.
func (s *Server) finish(
	ctx context.Context, in RequestInput, kind domain.UnitKind, req domain.GenerationRequest, result *domain.GenerationResult,
) (*mcp.CallToolResult, GenerateOutput, error) {
	out := GenerateOutput{
		Count:    len(result.Goldens),
		Goldens:  result.Goldens,
		Warnings: result.Warnings,
	}
	if out.Goldens == nil {
		out.Goldens = []domain.Golden{}
	}

	if in.Save {
		if s.ports.Datasets == nil {
			return nil, GenerateOutput{}, fmt.Errorf("save requested but no dataset store is configured")
		}
		ds, err := s.ports.Datasets.Save(ctx, in.Name, kind, req, result)
		if err != nil {
			return nil, GenerateOutput{}, err
		}
		out.DatasetID = ds.ID
	}
	return nil, out, nil
}

func (s *Server) handleListDatasets(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDatasetsInput,
) (*mcp.CallToolResult, ListDatasetsOutput, error) {
	infos, err := s.datasetInfos(ctx)
	if err != nil {
		return nil, ListDatasetsOutput{}, err
	}
	return nil, ListDatasetsOutput{Datasets: infos, Count: len(infos)}, nil
}

func (s *Server) datasetInfos(ctx context.Context) ([]DatasetInfo, error) {
	if s.ports.Datasets == nil {
		return []DatasetInfo{}, nil
	}
	summaries, err := s.ports.Datasets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	infos := make([]DatasetInfo, len(summaries))
	for i, d := range summaries {
		infos[i] = DatasetInfo{
			ID:          d.ID,
			Name:        d.Name,
			SourceKind:  string(d.SourceKind),
			GoldenCount: d.GoldenCount,
			Warnings:    d.WarningCount,
			CreatedAt:   d.CreatedAt,
		}
	}
	return infos, nil
}
