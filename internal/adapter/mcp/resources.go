package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

const recentWorkflowsLimit = 20

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"paperdesk://catalog",
			"Product Catalog",
			mcplib.WithResourceDescription("Paper products with list prices"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"paperdesk://workflows/recent",
			"Recent Workflows",
			mcplib.WithResourceDescription("The most recent workflow records"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRecentWorkflowsResource,
	)
}

func (s *Server) handleCatalogResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return jsonResource(req.Params.URI, ledger.Catalog)
}

func (s *Server) handleRecentWorkflowsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Workflows == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"workflow history not configured"}`,
			},
		}, nil
	}
	recs, err := s.deps.Workflows.List(ctx, recentWorkflowsLimit)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, recs)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
