package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/PaperDesk/internal/adapter/otel"
	"github.com/Strob0t/PaperDesk/internal/adapter/ws"
	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/logger"
	"github.com/Strob0t/PaperDesk/internal/port/broadcast"
	"github.com/Strob0t/PaperDesk/internal/port/history"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
)

// CoordinatorService drives a request through the worker pipeline and
// produces its workflow record.
type CoordinatorService struct {
	gw      Dispatcher
	rules   *RuleService
	workers Registry
	orchCfg *config.Orchestrator
	policy  RetryPolicy

	handoff *HandoffService
	history history.Sink
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	metrics *otel.Metrics

	now   func() time.Time
	newID func() string
}

// NewCoordinatorService creates a CoordinatorService with its required dependencies.
func NewCoordinatorService(
	gw Dispatcher,
	rules *RuleService,
	workers Registry,
	orchCfg *config.Orchestrator,
	policy RetryPolicy,
) *CoordinatorService {
	return &CoordinatorService{
		gw:      gw,
		rules:   rules,
		workers: workers,
		orchCfg: orchCfg,
		policy:  policy,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetHandoff enables worker-to-worker handoff messages between steps.
func (s *CoordinatorService) SetHandoff(h *HandoffService) { s.handoff = h }

// SetHistory sets the sink that receives every finished record.
func (s *CoordinatorService) SetHistory(h history.Sink) { s.history = h }

// SetQueue sets the message queue used to publish workflows.completed.
func (s *CoordinatorService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetHub sets the broadcaster for live workflow events.
func (s *CoordinatorService) SetHub(hub broadcast.Broadcaster) { s.hub = hub }

// SetMetrics sets the metric instruments.
func (s *CoordinatorService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// CoordinateWorkflow runs req to a terminal status. Every per-step failure
// is captured in the record; a Go error is returned only when there is no
// request to coordinate.
func (s *CoordinatorService) CoordinateWorkflow(ctx context.Context, req *workflow.Request) (*workflow.Record, error) {
	if req == nil {
		return nil, fmt.Errorf("coordinate workflow: %w: request is required", domain.ErrValidation)
	}

	id := s.newID()
	ctx = logger.WithWorkflowID(ctx, id)
	ctx, span := otel.StartWorkflowSpan(ctx, id, string(req.Type))
	defer span.End()

	rec := workflow.NewRecord(id, *req, s.now())
	asOf := s.resolveAsOf(req)
	wctx := workflow.NewContext(id, asOf)
	seq := workflow.Sequence(req.Type)

	s.metrics.RecordStart(ctx, string(req.Type))
	s.broadcast(ctx, ws.EventWorkflowStarted, ws.WorkflowStartedEvent{
		WorkflowID:  id,
		RequestType: string(req.Type),
		Sequence:    agentNames(seq),
	})
	slog.InfoContext(ctx, "workflow started", "type", req.Type, "customer_id", req.CustomerID, "as_of_date", asOf)

	initial, err := s.cashBalance(ctx, asOf)
	if err != nil {
		_ = rec.Fail(fmt.Sprintf("read initial cash balance: %v", err), s.now())
		s.finish(ctx, rec, nil, asOf)
		return rec, nil
	}

	if d := s.rules.Decide(req); !d.Accepted {
		slog.InfoContext(ctx, "workflow rejected by business rule", "rule_id", d.RuleID, "reason", d.Reason)
		_ = rec.Reject(d.Reason, s.now())
		s.finish(ctx, rec, &initial, asOf)
		return rec, nil
	}

	for i, agent := range seq {
		step := s.runStep(ctx, agent, req, wctx)
		if err := rec.AppendStep(step); err != nil {
			slog.ErrorContext(ctx, "append step", "agent", agent, "error", err)
			break
		}

		if !step.Success {
			_ = rec.Fail(fmt.Sprintf("%s: %s", agent, step.Error), s.now())
			break
		}

		absorb(wctx, agent, step.Data)

		if req.Type == workflow.TypeQuote && agent == workflow.AgentQuoting &&
			wctx.CanFulfill != nil && !*wctx.CanFulfill {
			_ = rec.Reject("insufficient stock to fulfill the quote", s.now())
			break
		}

		if s.handoff != nil && i+1 < len(seq) {
			if _, err := s.handoff.Handoff(ctx, id, agent, seq[i+1], req.Priority, step.Data); err != nil {
				slog.WarnContext(ctx, "handoff failed", "from", agent, "to", seq[i+1], "error", err)
			}
		}
	}

	if rec.Status == workflow.StatusInProgress {
		_ = rec.Complete(s.now())
	}

	s.finish(ctx, rec, &initial, asOf)
	return rec, nil
}

// CoordinateBatch runs independent requests concurrently, bounded by
// orchestrator.max_parallel. Records are returned in request order.
func (s *CoordinatorService) CoordinateBatch(ctx context.Context, reqs []workflow.Request) ([]*workflow.Record, error) {
	out := make([]*workflow.Record, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.maxParallel(), 1))

	for i := range reqs {
		g.Go(func() error {
			rec, err := s.CoordinateWorkflow(gctx, &reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CoordinatorService) maxParallel() int {
	if s.orchCfg == nil {
		return 1
	}
	return s.orchCfg.MaxParallel
}

// resolveAsOf picks the ledger date for a run: the request's, the
// configured default, or today.
func (s *CoordinatorService) resolveAsOf(req *workflow.Request) string {
	if req.AsOfDate != "" {
		return req.AsOfDate
	}
	if s.orchCfg != nil && s.orchCfg.AsOfDate != "" {
		return s.orchCfg.AsOfDate
	}
	return s.now().Format(time.DateOnly)
}

func (s *CoordinatorService) cashBalance(ctx context.Context, asOf string) (float64, error) {
	return cashBalance(ctx, s.gw, asOf)
}

// runStep invokes one worker with retry and converts the outcome into a step.
func (s *CoordinatorService) runStep(ctx context.Context, agent workflow.Agent, req *workflow.Request, wctx *workflow.Context) workflow.Step {
	ctx, span := otel.StartStepSpan(ctx, string(agent))
	defer span.End()

	step := workflow.Step{Agent: agent}
	w, ok := s.workers[agent]
	if !ok {
		step.Error = fmt.Sprintf("no worker registered for %s", agent)
		step.ErrorType = string(worker.KindSystem)
		return step
	}

	wctx.Inbox = nil
	if s.handoff != nil {
		msgs := s.handoff.Receive(wctx.WorkflowID, agent)
		for i := range msgs {
			wctx.Inbox = append(wctx.Inbox, workflow.Handoff{
				MessageID: msgs[i].ID,
				From:      workflow.Agent(msgs[i].From),
				Priority:  msgs[i].Priority,
				Content:   msgs[i].Content,
			})
		}
		if len(msgs) > 0 {
			slog.DebugContext(ctx, "handoff received", "agent", agent, "messages", len(msgs), "from", msgs[0].From)
		}
	}

	start := s.now()
	res, attempts := ProcessWithRetry(ctx, w, req, wctx, s.policy)
	step.Attempts = attempts
	step.DurationMS = s.now().Sub(start).Milliseconds()

	if res.Failed() {
		step.Error = res.String("error")
		step.ErrorType = res.String("error_type")
		span.SetAttributes(attribute.String("error.type", step.ErrorType))
		slog.WarnContext(ctx, "worker step failed", "agent", agent, "attempts", attempts, "error_type", step.ErrorType, "error", step.Error)
	} else {
		step.Success = true
		step.Data = res
		slog.InfoContext(ctx, "worker step completed", "agent", agent, "attempts", attempts, "status", res.Status())
	}

	s.metrics.RecordStep(ctx, string(agent), attempts, step.Success, float64(step.DurationMS))
	s.broadcast(ctx, ws.EventWorkflowStep, ws.WorkflowStepEvent{
		WorkflowID: wctx.WorkflowID,
		Agent:      string(agent),
		Success:    step.Success,
		Attempts:   attempts,
		Error:      step.Error,
		DurationMS: step.DurationMS,
	})
	return step
}

// absorb threads a successful step's output into the run context.
func absorb(wctx *workflow.Context, agent workflow.Agent, data map[string]any) {
	wctx.Outputs[agent] = data
	res := worker.Result(data)

	switch agent {
	case workflow.AgentQuoting:
		wctx.QuoteDetails, _ = data["quote_details"].([]workflow.QuoteLine)
		wctx.TotalAmount, _ = res.Float("total_amount")
		if can, ok := data["can_fulfill"].(bool); ok {
			wctx.CanFulfill = &can
		}
		wctx.HasQuote = true
	case workflow.AgentSales:
		lines, _ := data["items"].([]SaleLine)
		for _, l := range lines {
			wctx.MarkCommitted(l.ItemName)
		}
	case workflow.AgentCustomerService:
		if item := res.String("item_name"); item != "" {
			wctx.InquiryItems = []workflow.Item{{Name: item, Quantity: 1}}
		}
	}
}

// finish records balances, stores the record and announces the outcome.
// initial is nil when the opening balance could not be read.
func (s *CoordinatorService) finish(ctx context.Context, rec *workflow.Record, initial *float64, asOf string) {
	var final *float64
	if initial != nil {
		if bal, err := s.cashBalance(ctx, asOf); err != nil {
			slog.WarnContext(ctx, "read final cash balance failed", "error", err)
		} else {
			final = &bal
		}
	}
	rec.SetBalances(initial, final)

	if s.handoff != nil {
		if n := s.handoff.Release(rec.ID); n > 0 {
			slog.DebugContext(ctx, "undelivered handoff messages dropped", "count", n)
		}
	}

	if s.history != nil {
		if err := s.history.Append(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "append workflow history", "error", err)
		}
	}

	var duration time.Duration
	if rec.FinishedAt != nil {
		duration = rec.FinishedAt.Sub(rec.StartedAt)
	}
	s.metrics.RecordWorkflow(ctx, string(rec.Request.Type), string(rec.Status), duration.Seconds())
	s.publishCompleted(ctx, rec, duration)
	s.broadcast(ctx, ws.EventWorkflowFinished, ws.WorkflowFinishedEvent{
		WorkflowID:         rec.ID,
		Status:             string(rec.Status),
		Error:              rec.Error,
		RejectionReason:    rec.RejectionReason,
		CashBalanceChanged: rec.CashBalanceChanged,
		CashBalanceChange:  rec.CashBalanceChange,
	})

	slog.InfoContext(ctx, "workflow finished",
		"status", rec.Status,
		"steps", len(rec.Steps),
		"cash_balance_changed", rec.CashBalanceChanged,
		"duration_ms", duration.Milliseconds(),
	)
}

func (s *CoordinatorService) publishCompleted(ctx context.Context, rec *workflow.Record, d time.Duration) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.WorkflowCompletedPayload{
		WorkflowID:         rec.ID,
		RequestType:        string(rec.Request.Type),
		CustomerID:         rec.Request.CustomerID,
		Status:             string(rec.Status),
		Steps:              len(rec.Steps),
		Error:              rec.Error,
		RejectionReason:    rec.RejectionReason,
		CashBalanceChanged: rec.CashBalanceChanged,
		CashBalanceChange:  rec.CashBalanceChange,
		DurationMS:         d.Milliseconds(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "marshal workflow completed", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectWorkflowCompleted, data); err != nil {
		slog.WarnContext(ctx, "publish workflow completed", "error", err)
	}
}

func (s *CoordinatorService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

func agentNames(seq []workflow.Agent) []string {
	out := make([]string, len(seq))
	for i, a := range seq {
		out[i] = string(a)
	}
	return out
}
