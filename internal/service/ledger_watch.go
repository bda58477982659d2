package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/PaperDesk/internal/adapter/ws"
	"github.com/Strob0t/PaperDesk/internal/port/broadcast"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
)

// LedgerWatcher consumes workflows.completed and, for runs that moved cash,
// broadcasts the fresh balance as a ledger.updated event. Every instance
// subscribed to the queue sees every completion, so dashboards attached to
// any instance stay current.
type LedgerWatcher struct {
	gateway  Dispatcher
	hub      broadcast.Broadcaster
	asOfDate string
}

// NewLedgerWatcher reads balances through gw as of asOfDate ("" means today).
func NewLedgerWatcher(gw Dispatcher, hub broadcast.Broadcaster, asOfDate string) *LedgerWatcher {
	return &LedgerWatcher{gateway: gw, hub: hub, asOfDate: asOfDate}
}

// Start subscribes to q. The returned function stops the subscription.
func (w *LedgerWatcher) Start(ctx context.Context, q messagequeue.Queue) (func(), error) {
	stop, err := q.Subscribe(ctx, messagequeue.SubjectWorkflowCompleted, w.Handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectWorkflowCompleted, err)
	}
	return stop, nil
}

// Handle processes one workflows.completed payload. A failed balance read is
// returned so the queue redelivers the message.
func (w *LedgerWatcher) Handle(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.WorkflowCompletedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode completed payload: %w", err)
	}
	if !p.CashBalanceChanged {
		return nil
	}

	args := map[string]any{}
	if w.asOfDate != "" {
		args["as_of_date"] = w.asOfDate
	}
	res := w.gateway.Dispatch(ctx, OpGetCashBalance, args)
	if err := res.Err(); err != nil {
		return fmt.Errorf("read cash balance: %w", err)
	}
	bal, _ := res.Float("balance")

	slog.InfoContext(ctx, "ledger updated", "workflow_id", p.WorkflowID, "change", p.CashBalanceChange, "cash_balance", bal)
	w.hub.BroadcastEvent(ctx, ws.EventLedgerUpdated, ws.LedgerUpdatedEvent{
		WorkflowID:  p.WorkflowID,
		Change:      p.CashBalanceChange,
		CashBalance: bal,
		AsOfDate:    res.String("as_of_date"),
	})
	return nil
}
