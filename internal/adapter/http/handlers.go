package http

import (
	"fmt"
	"net/http"

	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/port/history"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
	"github.com/Strob0t/PaperDesk/internal/resilience"
	"github.com/Strob0t/PaperDesk/internal/service"
)

const defaultListLimit = 50

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Coordinator *service.CoordinatorService
	Gateway     *service.GatewayService
	Rules       *service.RuleService
	History     history.Sink
	Breaker     *resilience.Breaker // optional
	Queue       messagequeue.Queue  // optional
	Limits      config.Server
	StoreDriver string
}

// --- Workflows ---

// CreateWorkflow handles POST /api/v1/workflows.
// The response is the terminal workflow record, whatever its status.
func (h *Handlers) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.Request](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, err, "invalid request")
		return
	}

	rec, err := h.Coordinator.CoordinateWorkflow(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "workflow failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type batchRequest struct {
	Requests []workflow.Request `json:"requests"`
}

type batchResponse struct {
	Workflows []*workflow.Record `json:"workflows"`
}

// CreateWorkflowBatch handles POST /api/v1/workflows/batch.
// Records are returned in request order.
func (h *Handlers) CreateWorkflowBatch(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[batchRequest](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	if h.Limits.MaxBatchSize > 0 && len(body.Requests) > h.Limits.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds max size %d", h.Limits.MaxBatchSize))
		return
	}
	for i := range body.Requests {
		if err := body.Requests[i].Validate(); err != nil {
			writeDomainError(w, fmt.Errorf("requests[%d]: %w", i, err), "invalid request")
			return
		}
	}

	recs, err := h.Coordinator.CoordinateBatch(r.Context(), body.Requests)
	if err != nil {
		writeDomainError(w, err, "batch failed")
		return
	}
	writeJSON(w, http.StatusCreated, batchResponse{Workflows: recs})
}

// ListWorkflows handles GET /api/v1/workflows?limit=N, newest first.
func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	handleList(defaultListLimit, h.History.List)(w, r)
}

// GetWorkflow handles GET /api/v1/workflows/{id}.
func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	handleGet(h.History.Get, "workflow not found")(w, r)
}

// --- Ledger ---

// GetInventory handles GET /api/v1/inventory?as_of_date=YYYY-MM-DD.
func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Gateway.Dispatch(r.Context(), service.OpGetAllInventory, asOfArgs(r)))
}

// GetFinancialReport handles GET /api/v1/finance/report?as_of_date=YYYY-MM-DD.
func (h *Handlers) GetFinancialReport(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Gateway.Dispatch(r.Context(), service.OpFinancialReport, asOfArgs(r)))
}

func asOfArgs(r *http.Request) map[string]any {
	args := map[string]any{}
	if d := r.URL.Query().Get("as_of_date"); d != "" {
		args["as_of_date"] = d
	}
	return args
}

// --- Rules ---

// EvaluateRules handles POST /api/v1/rules/evaluate. It reports the rule
// decision for a request without running a workflow.
func (h *Handlers) EvaluateRules(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.Request](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Rules.Decide(&req))
}

// ListRules handles GET /api/v1/rules.
func (h *Handlers) ListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Rules.Rules())
}

// ReloadRules handles POST /api/v1/rules/reload.
func (h *Handlers) ReloadRules(w http.ResponseWriter, _ *http.Request) {
	if err := h.Rules.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Rules.Rules())
}

// --- Operations ---

type paramView struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

type operationView struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []paramView `json:"params"`
	Writes      bool        `json:"writes,omitempty"`
}

// ListOperations handles GET /api/v1/operations.
func (h *Handlers) ListOperations(w http.ResponseWriter, _ *http.Request) {
	ops := h.Gateway.Operations()
	out := make([]operationView, 0, len(ops))
	for i := range ops {
		v := operationView{Name: ops[i].Name, Description: ops[i].Description, Params: []paramView{}, Writes: ops[i].Writes}
		for _, p := range ops[i].Params {
			v.Params = append(v.Params, paramView(p))
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// InvokeOperation handles POST /api/v1/operations/{name}. The body is the
// argument object; failures are mapped to a status by error_type.
// Ledger-writing operations answer 403 unless server.allow_ledger_writes is set.
func (h *Handlers) InvokeOperation(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	op, ok := h.operation(name)
	if !ok {
		writeDomainError(w, fmt.Errorf("operation %q: %w", name, domain.ErrNotFound), "unknown operation: "+name)
		return
	}
	if op.Writes && !h.Limits.AllowLedgerWrites {
		writeDomainError(w, fmt.Errorf("operation %q: %w", name, domain.ErrForbidden),
			"operation "+name+" writes to the ledger and is disabled over HTTP")
		return
	}
	args, ok := readJSON[map[string]any](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	writeResult(w, h.Gateway.Dispatch(r.Context(), name, args))
}

func (h *Handlers) operation(name string) (service.Operation, bool) {
	for _, op := range h.Gateway.Operations() {
		if op.Name == name {
			return op, true
		}
	}
	return service.Operation{}, false
}

// --- Health ---

type healthStatus struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Breaker string `json:"breaker,omitempty"`
	Queue   string `json:"queue"`
}

// Health handles GET /health. An open store breaker reports 503.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	st := healthStatus{Status: "ok", Store: h.StoreDriver, Queue: "disabled"}
	if h.Queue != nil {
		st.Queue = "connected"
		if !h.Queue.IsConnected() {
			st.Queue = "disconnected"
			st.Status = "degraded"
		}
	}
	code := http.StatusOK
	if h.Breaker != nil {
		st.Breaker = h.Breaker.State()
		if st.Breaker == "open" {
			st.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, st)
}
