// ABOUTME: MCP server command implementation for scholar.
// ABOUTME: Starts the MCP server in stdio mode, optionally exposing Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/scholar/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio and exposes source search,
ingestion, and embedding status tools.`,
	RunE: runMCP,
}

var metricsAddr string

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline, err := newPipeline("", 0)
	if err != nil {
		return err
	}

	status := mcppkg.Status{
		Provider:          string(globalConfig.ProviderKind()),
		AllowMockFallback: globalConfig.Embedding.AllowMockFallback,
		Model:             globalConfig.Embedding.Model,
		Dimension:         globalGateway.Dimension(),
		StoreDriver:       globalConfig.Storage.Driver,
		HasCredential:     globalConfig.HasAPIKey(),
	}

	server, err := mcppkg.NewServer(newService(), pipeline, globalStore,
		mcppkg.WithStatus(status),
		mcppkg.WithLogger(globalLogger.With("component", "mcp")),
	)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr)
		defer stop()
	}

	return server.Serve(ctx)
}

// serveMetrics exposes the gateway registry on addr and returns a shutdown func.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(globalRegistry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	globalLogger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
