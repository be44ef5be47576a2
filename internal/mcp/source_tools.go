// ABOUTME: MCP tool implementations for academic source retrieval and ingestion.
// ABOUTME: Registers search_sources, read_source, ingest_sources, and embedding_status tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/scholar/internal/ingest"
	"github.com/2389-research/scholar/internal/models"
	"github.com/2389-research/scholar/internal/retrieval"
	"github.com/2389-research/scholar/internal/storage"
)

// maxAbstract caps abstracts in search listings.
const maxAbstract = 300

func (s *Server) registerSourceTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_sources",
		Description: "Find academic sources semantically similar to a query. Returns sources ranked by ascending embedding distance.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Natural-language query text", "minLength": 1},
				"limit": {"type": "number", "description": "Maximum number of sources to return (default 5)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchSources)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_source",
		Description: "Read the full stored record of an academic source by ID, including its full text.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "number", "description": "Source ID from search_sources"}
			},
			"required": ["id"]
		}`),
	}, s.handleReadSource)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "ingest_sources",
		Description: "Embed and store academic sources, either inline or from a JSON/YAML file. Defaults to the bundled sample file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Path to a JSON or YAML array of sources"},
				"documents": {
					"type": "array",
					"description": "Sources to ingest directly",
					"items": {
						"type": "object",
						"properties": {
							"title": {"type": "string"},
							"authors": {"type": "array", "items": {"type": "string"}},
							"year": {"type": "number"},
							"abstract": {"type": "string"},
							"full_text": {"type": "string"},
							"type": {"type": "string"}
						}
					}
				}
			}
		}`),
	}, s.handleIngestSources)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "embedding_status",
		Description: "Report the active embedding provider, fallback setting, vector dimension, and storage driver.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleEmbeddingStatus)
}

func (s *Server) handleSearchSources(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if strings.TrimSpace(args.Query) == "" {
		return toolError("query is required"), nil
	}
	if args.Limit < 0 {
		return toolError("limit must be positive"), nil
	}

	results, err := s.search.Search(ctx, args.Query, args.Limit)
	if err != nil {
		if errors.Is(err, retrieval.ErrRetrievalUnavailable) {
			return toolError("search unavailable: %v", err), nil
		}
		return toolError("search failed: %v", err), nil
	}

	if len(results) == 0 {
		return textResult("No sources found."), nil
	}
	return textResult(formatResults(results)), nil
}

func (s *Server) handleReadSource(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.ID <= 0 {
		return toolError("id is required"), nil
	}

	rec, err := s.store.Get(ctx, args.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return toolError("source %d not found", args.ID), nil
	}
	if err != nil {
		return toolError("failed to read source: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n", rec.Title))
	sb.WriteString(fmt.Sprintf("ID: %d\n", rec.ID))
	if len(rec.Authors) > 0 {
		sb.WriteString(fmt.Sprintf("Authors: %s\n", strings.Join(rec.Authors, ", ")))
	}
	if rec.Year != nil {
		sb.WriteString(fmt.Sprintf("Year: %d\n", *rec.Year))
	}
	if rec.SourceType != "" {
		sb.WriteString(fmt.Sprintf("Type: %s\n", rec.SourceType))
	}
	sb.WriteString(fmt.Sprintf("Embedded: %t\n", rec.HasEmbedding()))
	if rec.Abstract != "" {
		sb.WriteString(fmt.Sprintf("\n## Abstract\n%s\n", rec.Abstract))
	}
	if rec.FullText != "" {
		sb.WriteString(fmt.Sprintf("\n## Full Text\n%s\n", rec.FullText))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleIngestSources(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Path      string            `json:"path"`
		Documents []models.Document `json:"documents"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}

	docs := args.Documents
	source := "inline documents"
	if len(docs) == 0 {
		path := ingest.ResolvePath(args.Path)
		loaded, err := ingest.LoadDocuments(path)
		if err != nil {
			return toolError("failed to load documents: %v", err), nil
		}
		docs = loaded
		source = path
	}

	report, err := s.pipeline.Ingest(ctx, docs)
	if err != nil {
		return toolError("ingestion stopped after %d of %d sources: %v", report.Inserted, report.Documents, err), nil
	}

	text := fmt.Sprintf("Ingested %d of %d sources from %s (run %s)\nEmbedded: %d\nEmbedding failures: %d",
		report.Inserted, report.Documents, source, report.RunID.String()[:8], report.Embedded, report.EmbedFailures)
	if report.FellBack > 0 {
		text += fmt.Sprintf("\nMock fallback used: %d", report.FellBack)
	}
	return textResult(text), nil
}

func (s *Server) handleEmbeddingStatus(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	st := s.status
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Provider: %s\n", st.Provider))
	sb.WriteString(fmt.Sprintf("Mock fallback allowed: %t\n", st.AllowMockFallback))
	if st.Model != "" {
		sb.WriteString(fmt.Sprintf("Model: %s\n", st.Model))
	}
	sb.WriteString(fmt.Sprintf("Credential configured: %t\n", st.HasCredential))
	sb.WriteString(fmt.Sprintf("Dimension: %d\n", st.Dimension))
	sb.WriteString(fmt.Sprintf("Store: %s\n", st.StoreDriver))
	sb.WriteString(fmt.Sprintf("Ingest policy: %s", s.pipeline.Policy()))
	return textResult(sb.String()), nil
}

func formatResults(results []models.QueryResult) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, r.Title))
		if r.Year != nil {
			sb.WriteString(fmt.Sprintf(" (%d)", *r.Year))
		}
		sb.WriteString("\n")
		if len(r.Authors) > 0 {
			sb.WriteString(fmt.Sprintf("   Authors: %s\n", strings.Join(r.Authors, ", ")))
		}
		sb.WriteString(fmt.Sprintf("   ID: %d | Distance: %.4f", r.ID, r.Distance))
		if r.SourceType != "" {
			sb.WriteString(fmt.Sprintf(" | Type: %s", r.SourceType))
		}
		sb.WriteString("\n")
		if r.Abstract != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", truncate(r.Abstract, maxAbstract)))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
