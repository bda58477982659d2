package service

import (
	"context"

	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// FinanceWorker reviews quotes against the cash position and books sale
// lines that no earlier step committed.
type FinanceWorker struct {
	gw Dispatcher
}

// NewFinanceWorker creates a FinanceWorker.
func NewFinanceWorker(gw Dispatcher) *FinanceWorker {
	return &FinanceWorker{gw: gw}
}

func (w *FinanceWorker) Name() workflow.Agent { return workflow.AgentFinance }

func (w *FinanceWorker) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	return runWorker(ctx, w.Name(), req, wctx, w.process)
}

func (w *FinanceWorker) process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	if req.Type == workflow.TypeQuote || req.Type == workflow.TypeSale {
		if err := workflow.ValidateItems(req.Items); err != nil {
			return nil, worker.Wrap(worker.KindValidation, string(w.Name()), err)
		}
	}
	if req.Type == workflow.TypeSale {
		return w.recordSale(ctx, req, wctx)
	}
	return w.reviewQuote(ctx, req, wctx)
}

func (w *FinanceWorker) reviewQuote(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	date := asOfDate(req, wctx)
	bal, err := cashBalance(ctx, w.gw, date)
	if err != nil {
		return nil, err
	}

	out := worker.Result{
		"status":       "reviewed",
		"cash_balance": bal,
	}
	if wctx != nil && wctx.HasQuote {
		out["quote_details"] = wctx.QuoteDetails
		out["total_amount"] = wctx.TotalAmount
		if wctx.CanFulfill != nil {
			out["can_fulfill"] = *wctx.CanFulfill
		}
	}

	rep, err := report(ctx, w.gw, date)
	if err != nil {
		return nil, err
	}
	out["financial_report"] = rep
	return out, nil
}

func (w *FinanceWorker) recordSale(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	date := asOfDate(req, wctx)
	bal, err := cashBalance(ctx, w.gw, date)
	if err != nil {
		return nil, err
	}

	var (
		total   float64
		lines   = []SaleLine{}
		skipped = []string{}
	)
	for _, it := range req.Items {
		if wctx.Committed(it.Name) {
			skipped = append(skipped, it.Name)
			continue
		}
		line, err := commitSale(ctx, w.gw, it, date)
		if err != nil {
			return nil, err
		}
		total += line.ItemTotal
		lines = append(lines, line)
	}

	rep, err := report(ctx, w.gw, date)
	if err != nil {
		return nil, err
	}

	return worker.Result{
		"status":           "recorded",
		"cash_balance":     bal,
		"items":            lines,
		"already_recorded": skipped,
		"total_amount":     total,
		"financial_report": rep,
	}, nil
}
