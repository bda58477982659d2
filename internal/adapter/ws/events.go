package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventWorkflowStarted  = "workflow.started"
	EventWorkflowStep     = "workflow.step"
	EventWorkflowFinished = "workflow.finished"
	EventLedgerUpdated    = "ledger.updated"
)

// WorkflowStartedEvent is broadcast when the coordinator opens a record.
type WorkflowStartedEvent struct {
	WorkflowID  string   `json:"workflow_id"`
	RequestType string   `json:"request_type"`
	Sequence    []string `json:"sequence"`
}

// WorkflowStepEvent is broadcast after every worker step.
type WorkflowStepEvent struct {
	WorkflowID string `json:"workflow_id"`
	Agent      string `json:"agent"`
	Success    bool   `json:"success"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// WorkflowFinishedEvent is broadcast when a record reaches a terminal status.
type WorkflowFinishedEvent struct {
	WorkflowID         string  `json:"workflow_id"`
	Status             string  `json:"status"`
	Error              string  `json:"error,omitempty"`
	RejectionReason    string  `json:"rejection_reason,omitempty"`
	CashBalanceChanged bool    `json:"cash_balance_changed"`
	CashBalanceChange  float64 `json:"cash_balance_change"`
}

// LedgerUpdatedEvent is broadcast after a workflow moved cash.
type LedgerUpdatedEvent struct {
	WorkflowID  string  `json:"workflow_id"`
	Change      float64 `json:"change"`
	CashBalance float64 `json:"cash_balance"`
	AsOfDate    string  `json:"as_of_date,omitempty"`
}

// workflowScoped is implemented by payloads that belong to one workflow.
type workflowScoped interface {
	workflow() string
}

func (e WorkflowStartedEvent) workflow() string  { return e.WorkflowID }
func (e WorkflowStepEvent) workflow() string     { return e.WorkflowID }
func (e WorkflowFinishedEvent) workflow() string { return e.WorkflowID }

// BroadcastEvent marshals a typed event and broadcasts it. Workflow events
// only reach clients subscribed to that workflow or to everything.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	msg := Message{Type: eventType, Payload: json.RawMessage(data)}
	if s, ok := payload.(workflowScoped); ok {
		h.BroadcastToWorkflow(ctx, s.workflow(), msg)
		return
	}
	h.Broadcast(ctx, msg)
}
