package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/rule"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
	"github.com/Strob0t/PaperDesk/internal/service"
)

func TestHandoff_PriorityOrderAndAck(t *testing.T) {
	h := service.NewHandoffService(nil, time.Hour)
	ctx := context.Background()

	low, err := h.Handoff(ctx, "wf-1", workflow.AgentQuoting, workflow.AgentInventory, 1, map[string]any{"n": 1})
	if err != nil {
		t.Fatalf("Handoff: %v", err)
	}
	high, err := h.Handoff(ctx, "wf-1", workflow.AgentSales, workflow.AgentInventory, 5, map[string]any{"n": 2})
	if err != nil {
		t.Fatalf("Handoff: %v", err)
	}
	if h.Pending("wf-1", workflow.AgentInventory) != 2 {
		t.Fatalf("expected 2 pending, got %d", h.Pending("wf-1", workflow.AgentInventory))
	}

	msgs := h.Receive("wf-1", workflow.AgentInventory)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != high || msgs[1].ID != low {
		t.Fatalf("expected higher priority first, got %s then %s", msgs[0].ID, msgs[1].ID)
	}
	for _, m := range msgs {
		if !m.Acknowledged {
			t.Fatalf("message %s not acknowledged", m.ID)
		}
		if m.Metadata["workflow_id"] != "wf-1" {
			t.Fatalf("message %s missing workflow id", m.ID)
		}
	}
	if h.Pending("wf-1", workflow.AgentInventory) != 0 {
		t.Fatal("expected mailbox drained")
	}
}

func TestHandoff_RunsAreIsolated(t *testing.T) {
	h := service.NewHandoffService(nil, time.Hour)
	ctx := context.Background()

	if _, err := h.Handoff(ctx, "wf-a", workflow.AgentQuoting, workflow.AgentFinance, 0, nil); err != nil {
		t.Fatalf("Handoff: %v", err)
	}
	if _, err := h.Handoff(ctx, "wf-b", workflow.AgentQuoting, workflow.AgentFinance, 0, nil); err != nil {
		t.Fatalf("Handoff: %v", err)
	}

	if got := h.Receive("wf-a", workflow.AgentFinance); len(got) != 1 {
		t.Fatalf("expected 1 message for wf-a, got %d", len(got))
	}
	if got := h.Receive("wf-unknown", workflow.AgentFinance); got != nil {
		t.Fatalf("expected nil for unknown run, got %v", got)
	}
	if n := h.Release("wf-b"); n != 1 {
		t.Fatalf("expected 1 undelivered message released, got %d", n)
	}
	if h.Pending("wf-b", workflow.AgentFinance) != 0 {
		t.Fatal("expected released run to be empty")
	}
}

func TestHandoff_PublishesToQueue(t *testing.T) {
	q := &fakeQueue{}
	h := service.NewHandoffService(q, 0)

	id, err := h.Handoff(context.Background(), "wf-1", workflow.AgentQuoting, workflow.AgentInventory, 2,
		map[string]any{"status": "quoted"})
	if err != nil {
		t.Fatalf("Handoff: %v", err)
	}
	if id == "" {
		t.Fatal("expected a message id")
	}
	if n := q.count(messagequeue.SubjectWorkflowHandoff); n != 1 {
		t.Fatalf("expected 1 publish, got %d", n)
	}
	if err := messagequeue.Validate(messagequeue.SubjectWorkflowHandoff, q.payloads[0]); err != nil {
		t.Fatalf("published payload invalid: %v", err)
	}
}

// inboxRecorder wraps a worker and keeps a copy of every inbox it was handed.
type inboxRecorder struct {
	service.Worker
	mu   sync.Mutex
	seen [][]workflow.Handoff
}

func (r *inboxRecorder) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	r.mu.Lock()
	r.seen = append(r.seen, append([]workflow.Handoff(nil), wctx.Inbox...))
	r.mu.Unlock()
	return r.Worker.Process(ctx, req, wctx)
}

func TestCoordinateWorkflow_HandoffReachesNextWorker(t *testing.T) {
	gw := service.NewGatewayService(newStore(t, map[string]int{"A4 paper": 1000}), nil, nil)
	reg := service.NewRegistry(gw)
	recorders := map[workflow.Agent]*inboxRecorder{}
	for _, a := range workflow.Sequence(workflow.TypeQuote) {
		recorders[a] = &inboxRecorder{Worker: reg[a]}
		reg[a] = recorders[a]
	}
	set := rule.Default()
	coord := service.NewCoordinatorService(gw, service.NewRuleService(&set), reg,
		&config.Orchestrator{MaxParallel: 1, AsOfDate: testDate}, noRetry())
	coord.SetHandoff(service.NewHandoffService(nil, time.Hour))

	rec, err := coord.CoordinateWorkflow(context.Background(), &workflow.Request{
		Type:     workflow.TypeQuote,
		Priority: 3,
		Items:    []workflow.Item{{Name: "A4 paper", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("CoordinateWorkflow: %v", err)
	}
	if rec.Status != workflow.StatusCompleted {
		t.Fatalf("expected completed, got %s (%+v)", rec.Status, rec.Steps)
	}

	tests := []struct {
		agent   workflow.Agent
		from    workflow.Agent
		wantKey string
	}{
		{agent: workflow.AgentQuoting},
		{agent: workflow.AgentInventory, from: workflow.AgentQuoting, wantKey: "total_amount"},
		{agent: workflow.AgentFinance, from: workflow.AgentInventory, wantKey: "all_in_stock"},
	}
	for _, tc := range tests {
		t.Run(string(tc.agent), func(t *testing.T) {
			r := recorders[tc.agent]
			if len(r.seen) != 1 {
				t.Fatalf("expected one call, got %d", len(r.seen))
			}
			inbox := r.seen[0]
			if tc.from == "" {
				if len(inbox) != 0 {
					t.Fatalf("first step should see an empty inbox, got %+v", inbox)
				}
				return
			}
			if len(inbox) != 1 {
				t.Fatalf("expected one handoff, got %d", len(inbox))
			}
			h := inbox[0]
			if h.From != tc.from || h.Priority != 3 || h.MessageID == "" {
				t.Fatalf("unexpected handoff %+v", h)
			}
			if _, ok := h.Content[tc.wantKey]; !ok {
				t.Fatalf("handoff content lacks %q: %v", tc.wantKey, h.Content)
			}
		})
	}
}
