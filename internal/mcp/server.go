// ABOUTME: MCP server initialization and configuration for scholar.
// ABOUTME: Sets up the server with source search, ingestion, and status tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/scholar/internal/ingest"
	"github.com/2389-research/scholar/internal/logging"
	"github.com/2389-research/scholar/internal/retrieval"
	"github.com/2389-research/scholar/internal/storage"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Status describes the active embedding and storage configuration.
type Status struct {
	Provider          string
	AllowMockFallback bool
	Model             string
	Dimension         int
	StoreDriver       string
	HasCredential     bool
}

// Server wraps the MCP server with retrieval and ingestion.
type Server struct {
	mcp      *gomcp.Server
	search   *retrieval.Service
	pipeline *ingest.Pipeline
	store    storage.SourceStore
	status   Status
	logger   *log.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithStatus sets what the embedding_status tool reports.
func WithStatus(st Status) ServerOption {
	return func(s *Server) {
		s.status = st
	}
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewServer creates an MCP server over a retrieval service, an ingestion pipeline, and the store they share.
func NewServer(search *retrieval.Service, pipeline *ingest.Pipeline, store storage.SourceStore, opts ...ServerOption) (*Server, error) {
	if search == nil {
		return nil, fmt.Errorf("retrieval service is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("ingest pipeline is required")
	}
	if store == nil {
		return nil, fmt.Errorf("source store is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "scholar",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		search:   search,
		pipeline: pipeline,
		store:    store,
		logger:   logging.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerSourceTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio", "provider", s.status.Provider, "store", s.status.StoreDriver)
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
