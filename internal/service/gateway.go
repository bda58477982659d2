package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/Strob0t/PaperDesk/internal/adapter/otel"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/port/database"
	"github.com/Strob0t/PaperDesk/internal/resilience"
)

// Gateway operation names.
const (
	OpCheckStock           = "check_stock"
	OpGetItemPrice         = "get_item_price"
	OpCreateTransaction    = "create_transaction"
	OpGetAllInventory      = "get_all_inventory"
	OpSupplierDeliveryDate = "get_supplier_delivery_date"
	OpGetCashBalance       = "get_cash_balance"
	OpFinancialReport      = "generate_financial_report"
	OpSearchQuoteHistory   = "search_quote_history"
)

// Param describes one declared argument of an operation.
type Param struct {
	Name        string
	Type        string // "string", "integer", "number" or "array"
	Description string
	Required    bool
}

// Operation is one entry of the gateway dispatch table.
type Operation struct {
	Name        string
	Description string
	Params      []Param
	Writes      bool // appends to the ledger
	call        func(ctx context.Context, args map[string]any) (worker.Result, error)
}

// Dispatcher invokes named gateway operations. Workers depend on this
// interface rather than on GatewayService.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) worker.Result
}

// GatewayService maps operation names to store calls. Every failure is
// returned as data; Dispatch never returns a Go error.
type GatewayService struct {
	store   database.Store
	breaker *resilience.Breaker
	metrics *otel.Metrics
	now     func() time.Time
	ops     map[string]*Operation
	order   []string
}

// NewGatewayService builds the dispatch table over store. breaker and metrics may be nil.
func NewGatewayService(store database.Store, breaker *resilience.Breaker, metrics *otel.Metrics) *GatewayService {
	g := &GatewayService{
		store:   store,
		breaker: breaker,
		metrics: metrics,
		now:     time.Now,
		ops:     make(map[string]*Operation),
	}
	g.register()
	return g
}

// Operations lists the dispatch table in registration order.
func (g *GatewayService) Operations() []Operation {
	out := make([]Operation, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, *g.ops[name])
	}
	return out
}

// Dispatch runs operation name with args filtered to its declared params.
// Unknown names and collaborator failures come back as {error, error_type}.
func (g *GatewayService) Dispatch(ctx context.Context, name string, args map[string]any) worker.Result {
	op, ok := g.ops[name]
	if !ok {
		g.metrics.RecordOperation(ctx, name, "unknown")
		return worker.Result{
			"error":      "Unknown operation: " + name,
			"error_type": string(worker.KindValidation),
		}
	}

	ctx, span := otel.StartOperationSpan(ctx, name)
	defer span.End()

	filtered := make(map[string]any, len(op.Params))
	for _, p := range op.Params {
		if v, ok := args[p.Name]; ok {
			filtered[p.Name] = v
		}
	}

	var res worker.Result
	call := func() (err error) {
		// A panicking collaborator is a system failure, never a crash.
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "gateway operation panicked", "operation", name, "panic", r)
				res, err = nil, worker.Errorf(worker.KindSystem, name, "panic: %v", r)
			}
		}()
		res, err = op.call(ctx, filtered)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(call)
	} else {
		err = call()
	}

	if err != nil {
		kind := classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.RecordOperation(ctx, name, string(kind))
		slog.DebugContext(ctx, "gateway operation failed", "operation", name, "error_type", kind, "error", err)
		return worker.Result{
			"error":      err.Error(),
			"error_type": string(kind),
		}
	}

	g.metrics.RecordOperation(ctx, name, "ok")
	return res
}

// classify maps a collaborator error onto the worker error taxonomy.
// Anything that is not clearly the caller's fault is a transport failure.
func classify(err error) worker.Kind {
	var we *worker.Error
	switch {
	case errors.As(err, &we):
		return we.Kind
	case errors.Is(err, domain.ErrValidation):
		return worker.KindValidation
	case errors.Is(err, domain.ErrNotFound):
		return worker.KindBusiness
	default:
		return worker.KindNetwork
	}
}

// IsCallerError reports errors the store answered deliberately. The
// circuit breaker ignores them.
func IsCallerError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation)
}

func (g *GatewayService) add(op *Operation) {
	g.ops[op.Name] = op
	g.order = append(g.order, op.Name)
}

func (g *GatewayService) register() {
	itemName := Param{Name: "item_name", Type: "string", Description: "Catalog item name, case-insensitive", Required: true}
	asOf := Param{Name: "as_of_date", Type: "string", Description: "Ledger date YYYY-MM-DD; defaults to today"}

	g.add(&Operation{
		Name:        OpCheckStock,
		Description: "Units on hand for an item as of a date",
		Params:      []Param{itemName, asOf},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			item, err := argString(args, "item_name")
			if err != nil {
				return nil, err
			}
			at, day, err := g.asOf(args)
			if err != nil {
				return nil, err
			}
			stock, err := g.store.StockLevel(ctx, item, at)
			if err != nil {
				return nil, err
			}
			return worker.Result{"item_name": item, "stock": stock, "as_of_date": day}, nil
		},
	})

	g.add(&Operation{
		Name:        OpGetItemPrice,
		Description: "Catalog unit price of an item",
		Params:      []Param{itemName},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			item, err := argString(args, "item_name")
			if err != nil {
				return nil, err
			}
			price, err := g.store.ItemPrice(ctx, item)
			if err != nil {
				return nil, err
			}
			return worker.Result{"item_name": item, "unit_price": price}, nil
		},
	})

	g.add(&Operation{
		Name:        OpCreateTransaction,
		Description: "Append a stock_orders or sales row to the ledger; price is the line total",
		Writes:      true,
		Params: []Param{
			itemName,
			{Name: "transaction_type", Type: "string", Description: "stock_orders or sales", Required: true},
			{Name: "quantity", Type: "integer", Description: "Units moved", Required: true},
			{Name: "price", Type: "number", Description: "Total price of the line", Required: true},
			{Name: "date", Type: "string", Description: "Transaction date YYYY-MM-DD", Required: true},
		},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			item, err := argString(args, "item_name")
			if err != nil {
				return nil, err
			}
			typ, err := argString(args, "transaction_type")
			if err != nil {
				return nil, err
			}
			qty, err := argInt(args, "quantity")
			if err != nil {
				return nil, err
			}
			price, err := argFloat(args, "price")
			if err != nil {
				return nil, err
			}
			raw, err := argString(args, "date")
			if err != nil {
				return nil, err
			}
			date, err := ledger.ParseDate(raw)
			if err != nil {
				return nil, err
			}
			id, err := g.store.CreateTransaction(ctx, &ledger.Transaction{
				ItemName: item,
				Type:     ledger.TransactionType(typ),
				Units:    qty,
				Price:    price,
				Date:     date,
			})
			if err != nil {
				return nil, err
			}
			return worker.Result{"transaction_id": id}, nil
		},
	})

	g.add(&Operation{
		Name:        OpGetAllInventory,
		Description: "Every item with positive stock as of a date",
		Params:      []Param{asOf},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			at, day, err := g.asOf(args)
			if err != nil {
				return nil, err
			}
			inv, err := g.store.AllInventory(ctx, at)
			if err != nil {
				return nil, err
			}
			return worker.Result{"inventory": inv, "as_of_date": day}, nil
		},
	})

	g.add(&Operation{
		Name:        OpSupplierDeliveryDate,
		Description: "Estimated supplier delivery date for a restock quantity",
		Params: []Param{
			{Name: "input_date", Type: "string", Description: "Order date YYYY-MM-DD", Required: true},
			{Name: "quantity", Type: "integer", Description: "Units to restock", Required: true},
		},
		call: func(_ context.Context, args map[string]any) (worker.Result, error) {
			raw, err := argString(args, "input_date")
			if err != nil {
				return nil, err
			}
			from, err := ledger.ParseDate(raw)
			if err != nil {
				return nil, err
			}
			qty, err := argInt(args, "quantity")
			if err != nil {
				return nil, err
			}
			return worker.Result{
				"delivery_date": ledger.SupplierDeliveryDate(from, qty).Format(time.DateOnly),
			}, nil
		},
	})

	g.add(&Operation{
		Name:        OpGetCashBalance,
		Description: "Cash balance (sales minus stock orders) as of a date",
		Params:      []Param{asOf},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			at, day, err := g.asOf(args)
			if err != nil {
				return nil, err
			}
			bal, err := g.store.CashBalance(ctx, at)
			if err != nil {
				return nil, err
			}
			return worker.Result{"balance": bal, "as_of_date": day}, nil
		},
	})

	g.add(&Operation{
		Name:        OpFinancialReport,
		Description: "Cash, inventory value and top sellers as of a date",
		Params:      []Param{asOf},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			at, _, err := g.asOf(args)
			if err != nil {
				return nil, err
			}
			report, err := g.store.FinancialReport(ctx, at)
			if err != nil {
				return nil, err
			}
			return worker.Result{"financial_report": report}, nil
		},
	})

	g.add(&Operation{
		Name:        OpSearchQuoteHistory,
		Description: "Historical quotes matching all search terms, newest first",
		Params: []Param{
			{Name: "search_terms", Type: "array", Description: "Terms that must all appear in the quote", Required: true},
			{Name: "limit", Type: "integer", Description: "Maximum quotes to return, default 5"},
		},
		call: func(ctx context.Context, args map[string]any) (worker.Result, error) {
			terms, err := argStrings(args, "search_terms")
			if err != nil {
				return nil, err
			}
			limit := 0
			if _, ok := args["limit"]; ok {
				if limit, err = argInt(args, "limit"); err != nil {
					return nil, err
				}
			}
			quotes, err := g.store.SearchQuoteHistory(ctx, terms, limit)
			if err != nil {
				return nil, err
			}
			return worker.Result{"quotes": quotes}, nil
		},
	})
}

// asOf resolves the optional as_of_date argument to the end of that day.
func (g *GatewayService) asOf(args map[string]any) (time.Time, string, error) {
	raw, _ := args["as_of_date"].(string)
	if strings.TrimSpace(raw) == "" {
		now := g.now()
		return ledger.EndOfDay(now), now.Format(time.DateOnly), nil
	}
	day, err := ledger.ParseDate(raw)
	if err != nil {
		return time.Time{}, "", err
	}
	return ledger.EndOfDay(day), day.Format(time.DateOnly), nil
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", domain.ErrValidation, key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", domain.ErrValidation, key)
	}
	return s, nil
}

func argFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, key)
	}
	f, ok := worker.Result{key: v}.Float(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, key)
	}
	return f, nil
}

func argInt(args map[string]any, key string) (int, error) {
	f, err := argFloat(args, key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
	}
	return int(f), nil
}

func argStrings(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain strings", domain.ErrValidation, key)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return strings.Fields(v), nil
	case nil:
		return nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, key)
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings", domain.ErrValidation, key)
	}
}
