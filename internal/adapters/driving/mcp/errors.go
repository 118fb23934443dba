// Package mcp provides an MCP (Model Context Protocol) server adapter for goldsmith.
// It lets AI assistants generate evaluation goldens and browse saved datasets.
package mcp

import "errors"

// ErrMissingGenerationService is returned when the generation service is not provided.
var ErrMissingGenerationService = errors.New("mcp: generation service is required")
