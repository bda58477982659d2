package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// SaleLine is one committed sale line.
type SaleLine struct {
	ItemName      string  `json:"item_name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	ItemTotal     float64 `json:"item_total"`
	TransactionID int64   `json:"transaction_id"`
}

// SalesWorker commits a sale in two phases: every item is stock-checked
// before the first transaction is written.
type SalesWorker struct {
	gw Dispatcher
}

// NewSalesWorker creates a SalesWorker.
func NewSalesWorker(gw Dispatcher) *SalesWorker {
	return &SalesWorker{gw: gw}
}

func (w *SalesWorker) Name() workflow.Agent { return workflow.AgentSales }

func (w *SalesWorker) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	return runWorker(ctx, w.Name(), req, wctx, w.process)
}

func (w *SalesWorker) process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	if err := workflow.ValidateItems(req.Items); err != nil {
		return nil, worker.Wrap(worker.KindValidation, string(w.Name()), err)
	}
	date := asOfDate(req, wctx)

	// Phase 1: stock check for the total demand of every item.
	var short []string
	for _, it := range demand(req.Items) {
		stock, err := stockOf(ctx, w.gw, it.Name, date)
		if err != nil {
			return nil, err
		}
		if stock < it.Quantity {
			short = append(short, fmt.Sprintf("%s (have %d, need %d)", it.Name, stock, it.Quantity))
		}
	}
	if len(short) > 0 {
		return nil, worker.Errorf(worker.KindBusiness, string(w.Name()),
			"insufficient stock for %s", strings.Join(short, ", "))
	}

	// Phase 2: price and commit.
	lines := make([]SaleLine, 0, len(req.Items))
	var total float64
	for _, it := range req.Items {
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
		"status":           "sold",
		"items":            lines,
		"total_amount":     total,
		"financial_report": rep,
	}, nil
}

// commitSale prices one line and writes its sales transaction.
func commitSale(ctx context.Context, gw Dispatcher, it workflow.Item, date string) (SaleLine, error) {
	price, err := priceOf(ctx, gw, it.Name)
	if err != nil {
		return SaleLine{}, err
	}
	lineTotal := price * float64(it.Quantity)
	res, err := call(ctx, gw, OpCreateTransaction, map[string]any{
		"item_name":        it.Name,
		"transaction_type": string(ledger.TypeSales),
		"quantity":         it.Quantity,
		"price":            lineTotal,
		"date":             date,
	})
	if err != nil {
		return SaleLine{}, err
	}
	id, _ := res.Int("transaction_id")
	return SaleLine{
		ItemName:      it.Name,
		Quantity:      it.Quantity,
		UnitPrice:     price,
		ItemTotal:     lineTotal,
		TransactionID: int64(id),
	}, nil
}
