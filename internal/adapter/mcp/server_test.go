package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/PaperDesk/internal/adapter/memory"
	pdmcp "github.com/Strob0t/PaperDesk/internal/adapter/mcp"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/service"
)

// --- Fakes ---

type fakeWorkflows struct {
	recs []workflow.Record
}

func (f *fakeWorkflows) List(_ context.Context, limit int) ([]workflow.Record, error) {
	if limit > 0 && limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func (f *fakeWorkflows) Get(_ context.Context, id string) (*workflow.Record, error) {
	for i := range f.recs {
		if f.recs[i].ID == id {
			return &f.recs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func newGateway(t *testing.T) *service.GatewayService {
	t.Helper()
	st := memory.NewStore(ledger.Catalog)
	if err := st.Seed(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return service.NewGatewayService(st, nil, nil)
}

func callTool(t *testing.T, s *pdmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	res, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return res
}

func textOf(t *testing.T, res *mcplib.CallToolResult) string {
	t.Helper()
	text, ok := res.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

// --- Tests ---

func TestToolRegistration(t *testing.T) {
	gw := newGateway(t)
	s := pdmcp.NewServer(pdmcp.ServerConfig{Name: "test", Version: "0.1.0"}, pdmcp.ServerDeps{Gateway: gw})

	tools := s.MCPServer().ListTools()
	want := len(gw.Operations()) + 2
	if len(tools) != want {
		t.Fatalf("expected %d tools, got %d", want, len(tools))
	}
	for _, op := range gw.Operations() {
		if _, ok := tools[op.Name]; !ok {
			t.Errorf("operation %q not exposed as a tool", op.Name)
		}
	}
	for _, name := range []string{pdmcp.ToolListWorkflows, pdmcp.ToolGetWorkflow} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestOperationTool(t *testing.T) {
	s := pdmcp.NewServer(pdmcp.ServerConfig{Name: "test", Version: "0.1.0"}, pdmcp.ServerDeps{Gateway: newGateway(t)})

	res := callTool(t, s, service.OpCheckStock, map[string]any{"item_name": "A4 paper", "as_of_date": "2025-01-31"})
	if res.IsError {
		t.Fatalf("tool returned error: %s", textOf(t, res))
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["stock"] != float64(ledger.OpeningStock["A4 paper"]) {
		t.Fatalf("expected seeded stock, got %v", out["stock"])
	}

	res = callTool(t, s, service.OpCheckStock, map[string]any{})
	if !res.IsError {
		t.Fatal("expected error result for missing item_name")
	}
	if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
		t.Fatalf("error payload should be JSON: %v", err)
	}
	if out["error_type"] != "validation_error" {
		t.Fatalf("expected validation_error, got %v", out["error_type"])
	}
}

func TestWorkflowTools(t *testing.T) {
	wf := &fakeWorkflows{recs: []workflow.Record{
		{ID: "wf-2", Status: workflow.StatusCompleted},
		{ID: "wf-1", Status: workflow.StatusRejected},
	}}
	s := pdmcp.NewServer(pdmcp.ServerConfig{Name: "test", Version: "0.1.0"}, pdmcp.ServerDeps{Workflows: wf})

	res := callTool(t, s, pdmcp.ToolListWorkflows, map[string]any{"limit": float64(1)})
	var recs []workflow.Record
	if err := json.Unmarshal([]byte(textOf(t, res)), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "wf-2" {
		t.Fatalf("expected newest record only, got %+v", recs)
	}

	res = callTool(t, s, pdmcp.ToolGetWorkflow, map[string]any{"workflow_id": "wf-1"})
	if res.IsError {
		t.Fatalf("tool returned error: %s", textOf(t, res))
	}

	if res = callTool(t, s, pdmcp.ToolGetWorkflow, map[string]any{"workflow_id": "nope"}); !res.IsError {
		t.Fatal("expected error for unknown workflow")
	}
	if res = callTool(t, s, pdmcp.ToolGetWorkflow, nil); !res.IsError {
		t.Fatal("expected error for missing workflow_id")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := pdmcp.NewServer(pdmcp.ServerConfig{Name: "test", Version: "0.1.0"}, pdmcp.ServerDeps{})
	if n := len(s.MCPServer().ListTools()); n != 2 {
		t.Fatalf("expected only the workflow tools, got %d", n)
	}
	if res := callTool(t, s, pdmcp.ToolListWorkflows, nil); !res.IsError {
		t.Fatal("expected error result when history is nil")
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := pdmcp.AuthMiddleware("secret", next)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer secret", http.StatusOK},
		{"api key header", "X-API-Key", "secret", http.StatusOK},
		{"wrong", "Authorization", "Bearer nope", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}

	if got := pdmcp.AuthMiddleware("", next); got == nil {
		t.Fatal("expected passthrough handler")
	}
}
