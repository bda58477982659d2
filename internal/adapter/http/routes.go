package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. workflowMW
// wraps the endpoints that start workflows (rate limiting, idempotency).
func MountRoutes(r chi.Router, h *Handlers, workflowMW ...func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Workflows
		r.With(workflowMW...).Post("/workflows", h.CreateWorkflow)
		r.With(workflowMW...).Post("/workflows/batch", h.CreateWorkflowBatch)
		r.Get("/workflows", h.ListWorkflows)
		r.Get("/workflows/{id}", h.GetWorkflow)

		// Ledger
		r.Get("/inventory", h.GetInventory)
		r.Get("/finance/report", h.GetFinancialReport)

		// Rules
		r.Get("/rules", h.ListRules)
		r.Post("/rules/evaluate", h.EvaluateRules)
		r.Post("/rules/reload", h.ReloadRules)

		// Gateway operations
		r.Get("/operations", h.ListOperations)
		r.With(workflowMW...).Post("/operations/{name}", h.InvokeOperation)
	})
}
