package messagequeue

// WorkflowCompletedPayload is the schema for workflows.completed messages.
type WorkflowCompletedPayload struct {
	WorkflowID         string  `json:"workflow_id"`
	RequestType        string  `json:"request_type"`
	CustomerID         string  `json:"customer_id,omitempty"`
	Status             string  `json:"status"`
	Steps              int     `json:"steps"`
	Error              string  `json:"error,omitempty"`
	RejectionReason    string  `json:"rejection_reason,omitempty"`
	CashBalanceChanged bool    `json:"cash_balance_changed"`
	CashBalanceChange  float64 `json:"cash_balance_change"`
	DurationMS         int64   `json:"duration_ms"`
}

// WorkflowHandoffPayload is the schema for workflows.handoff messages.
type WorkflowHandoffPayload struct {
	WorkflowID string         `json:"workflow_id"`
	MessageID  string         `json:"message_id"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Priority   int            `json:"priority"`
	Content    map[string]any `json:"content,omitempty"`
}
