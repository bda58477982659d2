package service

import (
	"context"

	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// StockStatus is the inventory verdict for one requested line.
type StockStatus struct {
	ItemName             string  `json:"item_name"`
	CurrentStock         int     `json:"current_stock"`
	QuantityNeeded       int     `json:"quantity_needed"`
	SupplierDeliveryDate *string `json:"supplier_delivery_date"`
	NeedsReorder         bool    `json:"needs_reorder"`
}

// InventoryWorker checks stock per item and estimates restock dates for shortfalls.
type InventoryWorker struct {
	gw Dispatcher
}

// NewInventoryWorker creates an InventoryWorker.
func NewInventoryWorker(gw Dispatcher) *InventoryWorker {
	return &InventoryWorker{gw: gw}
}

func (w *InventoryWorker) Name() workflow.Agent { return workflow.AgentInventory }

func (w *InventoryWorker) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	return runWorker(ctx, w.Name(), req, wctx, w.process)
}

func (w *InventoryWorker) process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	items := wctx.ItemsFor(req)
	if err := workflow.ValidateItems(items); err != nil {
		return nil, worker.Wrap(worker.KindValidation, string(w.Name()), err)
	}
	date := asOfDate(req, wctx)

	needs := demand(items)
	lines := make([]StockStatus, 0, len(needs))
	reorder := false
	for _, it := range needs {
		stock, err := stockOf(ctx, w.gw, it.Name, date)
		if err != nil {
			return nil, err
		}
		line := StockStatus{ItemName: it.Name, CurrentStock: stock, QuantityNeeded: it.Quantity}
		if stock < it.Quantity {
			res, err := call(ctx, w.gw, OpSupplierDeliveryDate, map[string]any{
				"input_date": date,
				"quantity":   it.Quantity - stock,
			})
			if err != nil {
				return nil, err
			}
			eta := res.String("delivery_date")
			line.SupplierDeliveryDate = &eta
			line.NeedsReorder = true
			reorder = true
		}
		lines = append(lines, line)
	}

	return worker.Result{
		"status":       "checked",
		"as_of_date":   date,
		"items":        lines,
		"all_in_stock": !reorder,
	}, nil
}
