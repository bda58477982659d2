package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

const similarQuotesLimit = 5

// QuotingWorker prices each line against current stock.
type QuotingWorker struct {
	gw Dispatcher
}

// NewQuotingWorker creates a QuotingWorker.
func NewQuotingWorker(gw Dispatcher) *QuotingWorker {
	return &QuotingWorker{gw: gw}
}

func (w *QuotingWorker) Name() workflow.Agent { return workflow.AgentQuoting }

func (w *QuotingWorker) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	return runWorker(ctx, w.Name(), req, wctx, w.process)
}

func (w *QuotingWorker) process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	items := wctx.ItemsFor(req)
	if err := workflow.ValidateItems(items); err != nil {
		return nil, worker.Wrap(worker.KindValidation, string(w.Name()), err)
	}
	date := asOfDate(req, wctx)

	stock := make(map[string]int)
	need := make(map[string]int)
	price := make(map[string]float64)
	canFulfill := true
	for _, it := range demand(items) {
		n, err := stockOf(ctx, w.gw, it.Name, date)
		if err != nil {
			return nil, err
		}
		p, err := priceOf(ctx, w.gw, it.Name)
		if err != nil {
			return nil, err
		}
		stock[it.Name], need[it.Name], price[it.Name] = n, it.Quantity, p
		if n < it.Quantity {
			canFulfill = false
		}
	}

	// Lines keep the request's order; InStock reflects the item's total demand.
	lines := make([]workflow.QuoteLine, 0, len(items))
	var total float64
	for _, it := range items {
		line := workflow.QuoteLine{
			ItemName:     it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    price[it.Name],
			ItemTotal:    price[it.Name] * float64(it.Quantity),
			CurrentStock: stock[it.Name],
			InStock:      stock[it.Name] >= need[it.Name],
		}
		total += line.ItemTotal
		lines = append(lines, line)
	}

	return worker.Result{
		"status":         "quoted",
		"quote_details":  lines,
		"total_amount":   total,
		"can_fulfill":    canFulfill,
		"similar_quotes": w.similarQuotes(ctx, items),
	}, nil
}

// similarQuotes collects reference quotes mentioning any requested item.
// Lookup failures only cost the reference list.
func (w *QuotingWorker) similarQuotes(ctx context.Context, items []workflow.Item) []ledger.Quote {
	seen := make(map[int64]bool)
	out := []ledger.Quote{}
	for _, it := range items {
		res := w.gw.Dispatch(ctx, OpSearchQuoteHistory, map[string]any{
			"search_terms": []string{it.Name},
			"limit":        similarQuotesLimit,
		})
		if res.Failed() {
			slog.WarnContext(ctx, "quote history lookup failed", "item", it.Name, "error", res.String("error"))
			continue
		}
		quotes, _ := res["quotes"].([]ledger.Quote)
		for _, q := range quotes {
			if len(out) == similarQuotesLimit {
				return out
			}
			if !seen[q.ID] {
				seen[q.ID] = true
				out = append(out, q)
			}
		}
	}
	return out
}
