package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/PaperDesk/internal/service"
)

// Tool names beyond the gateway operations.
const (
	ToolListWorkflows = "list_workflows"
	ToolGetWorkflow   = "get_workflow"
)

// registerTools registers one tool per gateway operation plus the
// workflow history tools.
func (s *Server) registerTools() {
	var tools []mcpserver.ServerTool
	if s.deps.Gateway != nil {
		for _, op := range s.deps.Gateway.Operations() {
			tools = append(tools, s.operationTool(op))
		}
	}
	tools = append(tools, s.listWorkflowsTool(), s.getWorkflowTool())
	s.mcpServer.AddTools(tools...)
}

func (s *Server) operationTool(op service.Operation) mcpserver.ServerTool {
	opts := []mcplib.ToolOption{mcplib.WithDescription(op.Description)}
	for _, p := range op.Params {
		opts = append(opts, paramOption(p))
	}
	name := op.Name
	return mcpserver.ServerTool{
		Tool: mcplib.NewTool(name, opts...),
		Handler: func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
			res := s.deps.Gateway.Dispatch(ctx, name, req.GetArguments())
			data, err := json.Marshal(res)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
			}
			if res.Failed() {
				return mcplib.NewToolResultError(string(data)), nil
			}
			return mcplib.NewToolResultText(string(data)), nil
		},
	}
}

func paramOption(p service.Param) mcplib.ToolOption {
	props := []mcplib.PropertyOption{mcplib.Description(p.Description)}
	if p.Required {
		props = append(props, mcplib.Required())
	}
	switch p.Type {
	case "integer", "number":
		return mcplib.WithNumber(p.Name, props...)
	case "array":
		props = append(props, mcplib.Items(map[string]any{"type": "string"}))
		return mcplib.WithArray(p.Name, props...)
	default:
		return mcplib.WithString(p.Name, props...)
	}
}

func (s *Server) listWorkflowsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(ToolListWorkflows,
		mcplib.WithDescription("List recent workflow records, newest first"),
		mcplib.WithNumber("limit", mcplib.Description("Maximum number of records; 0 returns all retained")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListWorkflows}
}

func (s *Server) getWorkflowTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(ToolGetWorkflow,
		mcplib.WithDescription("Get one workflow record by ID"),
		mcplib.WithString("workflow_id", mcplib.Required(), mcplib.Description("The workflow ID")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetWorkflow}
}

func (s *Server) handleListWorkflows(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Workflows == nil {
		return mcplib.NewToolResultError("workflow history not configured"), nil
	}
	limit := 0
	if v, ok := req.GetArguments()["limit"].(float64); ok {
		limit = int(v)
	}
	recs, err := s.deps.Workflows.List(ctx, limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list workflows", err), nil
	}
	return toolResultJSON(recs)
}

func (s *Server) handleGetWorkflow(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Workflows == nil {
		return mcplib.NewToolResultError("workflow history not configured"), nil
	}
	id, ok := req.GetArguments()["workflow_id"].(string)
	if !ok || id == "" {
		return mcplib.NewToolResultError("workflow_id is required"), nil
	}
	rec, err := s.deps.Workflows.Get(ctx, id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get workflow "+id, err), nil
	}
	return toolResultJSON(rec)
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
