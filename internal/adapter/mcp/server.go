// Package mcp exposes the PaperDesk gateway operations and workflow history
// to MCP clients over streamable HTTP.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/service"
)

// ServerConfig holds MCP server identity.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  string // empty disables auth
}

// OperationSource lists and invokes gateway operations.
type OperationSource interface {
	service.Dispatcher
	Operations() []service.Operation
}

// WorkflowReader reads finished workflow records.
type WorkflowReader interface {
	List(ctx context.Context, limit int) ([]workflow.Record, error)
	Get(ctx context.Context, id string) (*workflow.Record, error)
}

// ServerDeps holds the data sources behind tools and resources. Nil
// dependencies produce error results instead of panics.
type ServerDeps struct {
	Gateway   OperationSource
	Workflows WorkflowReader
}

// Server wraps an mcp-go server.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates a Server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the streamable HTTP transport, wrapped in API key auth
// when a key is configured.
func (s *Server) Handler() http.Handler {
	h := mcpserver.NewStreamableHTTPServer(s.mcpServer, mcpserver.WithEndpointPath("/mcp"))
	slog.Info("mcp endpoint enabled", "name", s.cfg.Name, "version", s.cfg.Version, "tools", len(s.mcpServer.ListTools()))
	return AuthMiddleware(s.cfg.APIKey, h)
}
