package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/mcp"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve the streamable HTTP transport instead. Prometheus
metrics are then served at /metrics on the same address.

Prompt template edits under ~/.goldsmith/prompts are picked up while the
server runs.

Examples:
  # Stdio mode (default, for Claude Desktop)
  goldsmith mcp

  # HTTP mode (for MCP Inspector, remote access)
  goldsmith mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "goldsmith": {
        "command": "/path/to/goldsmith",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	gen, cleanup, err := services.Generation(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	if services.Prompts != nil {
		go func() {
			if err := services.Prompts.Watch(ctx); err != nil {
				logger.Warn("prompt hot reload disabled", "error", err)
			}
		}()
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Generation: gen,
		Datasets:   services.Datasets,
		Defaults:   settings.Generation,
		Metrics:    services.Metrics,
	})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", displayAddr(mcpHTTPAddr))
		return server.RunHTTP(ctx, mcpHTTPAddr)
	}

	if addr := settings.Telemetry.MetricsAddr; addr != "" && services.Metrics != nil {
		go serveMetrics(ctx, addr, services.Metrics)
	}
	return server.Run(ctx)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// serveMetrics exposes metrics while the stdio server runs.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server stopped", "error", err)
	}
}
