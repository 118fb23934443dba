package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for goldsmith resources.
	uriScheme = "goldsmith://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing datasets.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "datasets",
		Name:        "datasets",
		Description: "List of all saved golden datasets",
		MIMEType:    "application/json",
	}, s.handleDatasetsResource)

	// Template for a single dataset with its goldens.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "datasets/{datasetId}",
		Name:        "dataset",
		Description: "Goldens and warnings of a saved dataset",
		MIMEType:    "application/json",
	}, s.handleDatasetResource)
}

// handleDatasetsResource returns summaries of all datasets.
func (s *Server) handleDatasetsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos, err := s.datasetInfos(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, infos)
}

// datasetView is the resource representation of a dataset.
type datasetView struct {
	DatasetInfo
	Goldens  []domain.Golden  `json:"goldens"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

// handleDatasetResource returns one dataset with its goldens.
func (s *Server) handleDatasetResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Datasets == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract datasetId from URI: goldsmith://datasets/{datasetId}
	id := extractDatasetID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ds, err := s.ports.Datasets.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting dataset: %w", err)
	}

	sum := ds.Summary()
	view := datasetView{
		DatasetInfo: DatasetInfo{
			ID:          sum.ID,
			Name:        sum.Name,
			SourceKind:  string(sum.SourceKind),
			GoldenCount: sum.GoldenCount,
			Warnings:    sum.WarningCount,
			CreatedAt:   sum.CreatedAt,
		},
		Goldens:  ds.Goldens,
		Warnings: ds.Warnings,
	}
	return jsonResource(req.Params.URI, view)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDatasetID extracts the dataset ID from a URI like goldsmith://datasets/{datasetId}.
func extractDatasetID(uri string) string {
	const prefix = uriScheme + "datasets/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
